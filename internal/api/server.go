// Package api is the HTTP front door. Handlers run the same shape for every
// operation: actor extraction, role check, time-lock gate where bid content
// is involved, store calls, then an audit write regardless of outcome.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tendervault/tendervault/internal/audit"
	"github.com/tendervault/tendervault/internal/blob"
	"github.com/tendervault/tendervault/internal/domain"
	"github.com/tendervault/tendervault/internal/identity"
	"github.com/tendervault/tendervault/internal/notify"
	"github.com/tendervault/tendervault/internal/store"
)

type TenderStore interface {
	Create(ctx context.Context, t domain.Tender) error
	Get(ctx context.Context, tenderID string) (domain.Tender, error)
	List(ctx context.Context) ([]domain.Tender, error)
	Update(ctx context.Context, tenderID string, upd store.TenderUpdate, now time.Time) (domain.Tender, error)
	Delete(ctx context.Context, tenderID string) error
}

type BidStore interface {
	PutPending(ctx context.Context, b domain.Bid) error
	Get(ctx context.Context, tenderID, bidderID string) (domain.Bid, error)
	ListByTender(ctx context.Context, tenderID string) ([]domain.Bid, error)
	CountByTender(ctx context.Context, tenderID string) (int, error)
	SetCurrentVersion(ctx context.Context, tenderID, bidderID, versionID string, now time.Time) (domain.Bid, error)
	SetEvalStage(ctx context.Context, tenderID, bidderID string, stage domain.EvalStage, now time.Time) (domain.Bid, error)
	UpsertScore(ctx context.Context, tenderID, bidderID, evaluatorID string, entry domain.ScoreEntry, now time.Time) (domain.Bid, error)
}

// BlobStore is the version-management slice of the content store. The
// handlers never read bid bytes; they only deal in version metadata and
// presigned URLs.
type BlobStore interface {
	ListVersions(ctx context.Context, prefix string) ([]blob.Version, error)
	CopyVersion(ctx context.Context, key, versionID string) (blob.Version, error)
}

type Presigner interface {
	PresignPut(key, contentType string) (url string, expiresIn int64)
	PresignGet(key, versionID, fileName string) (url string, expiresIn int64)
}

type AuditLog interface {
	List(ctx context.Context, f audit.Filter) ([]audit.Event, string, error)
}

type Server struct {
	tenders  TenderStore
	bids     BidStore
	blobs    BlobStore
	presign  Presigner
	auditLog AuditLog
	sink     *audit.Sink
	mailer   notify.Mailer
	verifier *identity.Verifier
	log      *slog.Logger

	// now is the single clock for every deadline comparison; injectable in
	// tests.
	now func() time.Time
}

func NewServer(tenders TenderStore, bids BidStore, blobs BlobStore, presign Presigner,
	auditLog AuditLog, sink *audit.Sink, mailer notify.Mailer, verifier *identity.Verifier, log *slog.Logger) *Server {
	return &Server{
		tenders:  tenders,
		bids:     bids,
		blobs:    blobs,
		presign:  presign,
		auditLog: auditLog,
		sink:     sink,
		mailer:   mailer,
		verifier: verifier,
		log:      log,
		now:      time.Now,
	}
}

// Routes mounts the authenticated API surface.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(s.withRequestID)
	r.Use(s.authenticate)

	r.Route("/tenders", func(r chi.Router) {
		r.Post("/", s.handleCreateTender)
		r.Get("/", s.handleListTenders)
		r.Route("/{tenderId}", func(r chi.Router) {
			r.Get("/", s.handleGetTender)
			r.Put("/", s.handleUpdateTender)
			r.Delete("/", s.handleDeleteTender)

			r.Post("/bids/upload-url", s.handleUploadURL)
			r.Get("/bids", s.handleListBids)
			r.Route("/bids/{bidderId}", func(r chi.Router) {
				r.Get("/download-url", s.handleDownloadURL)
				r.Get("/versions", s.handleListVersions)
				r.Post("/restore", s.handleRestoreVersion)
				r.Patch("/status", s.handleSetBidStatus)
				r.Put("/score", s.handleScoreBid)
			})
		})
	})
	r.Get("/audit-logs", s.handleListAuditLogs)
	return r
}

func actorOf(r *http.Request) identity.ActorContext {
	actor, _ := identity.ActorFrom(r.Context())
	return actor
}
