package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tendervault/tendervault/internal/audit"
	"github.com/tendervault/tendervault/internal/blob"
	"github.com/tendervault/tendervault/internal/domain"
	"github.com/tendervault/tendervault/internal/identity"
	"github.com/tendervault/tendervault/internal/store"
	"github.com/tendervault/tendervault/pkg/httpx"
)

// handleUploadURL issues a presigned PUT for a bidder's document. The gate
// order is fixed: role, request shape, tender existence, stored status,
// deadline. Only after all of them does the bid row go to PENDING.
func (s *Server) handleUploadURL(w http.ResponseWriter, r *http.Request) {
	tenderID := chi.URLParam(r, "tenderId")
	actor, ok := s.requireRole(w, r, domain.OpRequestUpload, audit.ActionUploadURLGenerated, tenderID)
	if !ok {
		return
	}
	var req uploadURLRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, requestIDOf(r), httpx.Validation([]httpx.FieldError{{Field: "body", Message: "Request body must be valid JSON"}}))
		return
	}
	if err := req.validate(); err != nil {
		httpx.WriteError(w, requestIDOf(r), err)
		return
	}

	t, err := s.tenders.Get(r.Context(), tenderID)
	if err != nil {
		s.writeTenderLookupError(w, r, audit.ActionUploadURLGenerated, tenderID, actor, err)
		return
	}
	if t.StoredStatus() != domain.TenderOpen {
		httpx.WriteError(w, requestIDOf(r), httpx.E(http.StatusBadRequest, "TENDER_ALREADY_CLOSED", "This tender is no longer accepting bids"))
		return
	}
	now := s.now()
	if !domain.AcceptingBids(t, now) {
		s.sink.Write(r.Context(), audit.Event{
			UserID:    actor.ID,
			UserRole:  actor.PrimaryRole,
			Action:    audit.ActionUploadURLGenerated,
			TenderID:  tenderID,
			IPAddress: actor.IP,
			UserAgent: actor.UserAgent,
			Result:    audit.ResultDenied,
			Metadata:  map[string]string{"reason": "Bid deadline has passed"},
		})
		httpx.WriteLocked(w, requestIDOf(r), "BID_DEADLINE_PASSED",
			"The submission deadline for this tender has passed",
			t.Deadline, 0)
		return
	}

	key := fmt.Sprintf("%s/%s/%d-%s", tenderID, actor.ID, now.UnixMilli(), req.FileName)
	url, expiresIn := s.presign.PresignPut(key, req.ContentType)

	bid := domain.Bid{
		TenderID:    tenderID,
		BidderID:    actor.ID,
		ObjectKey:   key,
		FileName:    req.FileName,
		FileSize:    req.FileSize,
		BidderEmail: actor.Email,
		Status:      domain.BidPending,
		SubmittedAt: now.UTC(),
		UpdatedAt:   now.UTC(),
	}
	if err := s.bids.PutPending(r.Context(), bid); err != nil {
		s.log.Error("pending bid write failed", "tenderId", tenderID, "bidderId", actor.ID, "error", err)
		s.writeInternal(w, r, audit.ActionUploadURLGenerated, tenderID, actor, err)
		return
	}

	s.sink.Write(r.Context(), audit.Event{
		UserID:    actor.ID,
		UserRole:  actor.PrimaryRole,
		Action:    audit.ActionUploadURLGenerated,
		TenderID:  tenderID,
		FileKey:   key,
		IPAddress: actor.IP,
		UserAgent: actor.UserAgent,
		Result:    audit.ResultSuccess,
		Metadata:  map[string]string{"fileName": req.FileName, "fileSize": strconv.FormatInt(req.FileSize, 10)},
	})
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"uploadUrl": url,
		"s3Key":     key,
		"expiresIn": expiresIn,
	})
}

// denySealed audits a time-locked read attempt and writes the 423 with the
// unlock countdown. The denial itself is part of the audit trail.
func (s *Server) denySealed(w http.ResponseWriter, r *http.Request, t domain.Tender, actor identity.ActorContext, now time.Time, fileKey string) {
	s.sink.Write(r.Context(), audit.Event{
		UserID:    actor.ID,
		UserRole:  actor.PrimaryRole,
		Action:    audit.ActionDownloadTimelocked,
		TenderID:  t.TenderID,
		FileKey:   fileKey,
		IPAddress: actor.IP,
		UserAgent: actor.UserAgent,
		Result:    audit.ResultDenied,
		Metadata:  map[string]string{"reason": "Tender is time-locked until deadline"},
	})
	httpx.WriteLocked(w, requestIDOf(r), "TENDER_LOCKED",
		"Bids are sealed until the tender deadline",
		t.Deadline, domain.SecondsRemaining(t, now))
}

// bidView adds the computed average score to the stored bid.
type bidView struct {
	domain.Bid
	AverageScore *float64 `json:"averageScore,omitempty"`
}

func viewBid(b domain.Bid) bidView {
	v := bidView{Bid: b}
	if avg, ok := domain.AverageScore(b.EvaluationScores); ok {
		v.AverageScore = &avg
	}
	return v
}

func (s *Server) handleListBids(w http.ResponseWriter, r *http.Request) {
	tenderID := chi.URLParam(r, "tenderId")
	actor, ok := s.requireRole(w, r, domain.OpListBids, audit.ActionBidsListed, tenderID)
	if !ok {
		return
	}
	t, err := s.tenders.Get(r.Context(), tenderID)
	if err != nil {
		s.writeTenderLookupError(w, r, audit.ActionBidsListed, tenderID, actor, err)
		return
	}
	now := s.now()
	if domain.Sealed(t, now) {
		s.denySealed(w, r, t, actor, now, "")
		return
	}

	bids, err := s.bids.ListByTender(r.Context(), tenderID)
	if err != nil {
		s.log.Error("bid list failed", "tenderId", tenderID, "error", err)
		s.writeInternal(w, r, audit.ActionBidsListed, tenderID, actor, err)
		return
	}
	views := make([]bidView, 0, len(bids))
	for _, b := range bids {
		views = append(views, viewBid(b))
	}

	s.sink.Write(r.Context(), audit.Event{
		UserID:    actor.ID,
		UserRole:  actor.PrimaryRole,
		Action:    audit.ActionBidsListed,
		TenderID:  tenderID,
		IPAddress: actor.IP,
		UserAgent: actor.UserAgent,
		Result:    audit.ResultSuccess,
		Metadata:  map[string]string{"bidCount": strconv.Itoa(len(views))},
	})
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"bids": views, "count": len(views)})
}

// loadBid resolves the tender and the bid from the URL without consulting
// the time-lock. Stage changes and version management stay available while
// the tender is sealed; only content reads and scoring wait for the
// deadline.
func (s *Server) loadBid(w http.ResponseWriter, r *http.Request, action string, actor identity.ActorContext) (domain.Tender, domain.Bid, bool) {
	tenderID := chi.URLParam(r, "tenderId")

	t, err := s.tenders.Get(r.Context(), tenderID)
	if err != nil {
		s.writeTenderLookupError(w, r, action, tenderID, actor, err)
		return domain.Tender{}, domain.Bid{}, false
	}
	b, ok := s.fetchBid(w, r, action, actor, tenderID)
	if !ok {
		return domain.Tender{}, domain.Bid{}, false
	}
	return t, b, true
}

// loadSealedBid is the front half of bid-content reads: it enforces the
// time-lock before the bid row is even fetched so a sealed tender reveals
// nothing about bid existence.
func (s *Server) loadSealedBid(w http.ResponseWriter, r *http.Request, action string, actor identity.ActorContext) (domain.Tender, domain.Bid, bool) {
	tenderID := chi.URLParam(r, "tenderId")

	t, err := s.tenders.Get(r.Context(), tenderID)
	if err != nil {
		s.writeTenderLookupError(w, r, action, tenderID, actor, err)
		return domain.Tender{}, domain.Bid{}, false
	}
	now := s.now()
	if domain.Sealed(t, now) {
		s.denySealed(w, r, t, actor, now, "")
		return domain.Tender{}, domain.Bid{}, false
	}
	b, ok := s.fetchBid(w, r, action, actor, tenderID)
	if !ok {
		return domain.Tender{}, domain.Bid{}, false
	}
	return t, b, true
}

func (s *Server) fetchBid(w http.ResponseWriter, r *http.Request, action string, actor identity.ActorContext, tenderID string) (domain.Bid, bool) {
	bidderID := chi.URLParam(r, "bidderId")
	b, err := s.bids.Get(r.Context(), tenderID, bidderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteError(w, requestIDOf(r), httpx.E(http.StatusNotFound, "BID_NOT_FOUND", "No bid found for this bidder on this tender"))
			return domain.Bid{}, false
		}
		s.log.Error("bid lookup failed", "tenderId", tenderID, "bidderId", bidderID, "error", err)
		s.writeInternal(w, r, action, tenderID, actor, err)
		return domain.Bid{}, false
	}
	return b, true
}

func (s *Server) handleDownloadURL(w http.ResponseWriter, r *http.Request) {
	tenderID := chi.URLParam(r, "tenderId")
	actor, ok := s.requireRole(w, r, domain.OpDownloadBid, audit.ActionDownloadGenerated, tenderID)
	if !ok {
		return
	}
	t, b, ok := s.loadSealedBid(w, r, audit.ActionDownloadGenerated, actor)
	if !ok {
		return
	}

	url, expiresIn := s.presign.PresignGet(b.ObjectKey, b.CurrentVersionID, b.FileName)
	s.sink.Write(r.Context(), audit.Event{
		UserID:    actor.ID,
		UserRole:  actor.PrimaryRole,
		Action:    audit.ActionDownloadGenerated,
		TenderID:  t.TenderID,
		FileKey:   b.ObjectKey,
		VersionID: b.CurrentVersionID,
		IPAddress: actor.IP,
		UserAgent: actor.UserAgent,
		Result:    audit.ResultSuccess,
	})
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"downloadUrl": url,
		"fileName":    b.FileName,
		"fileSize":    b.FileSize,
		"versionId":   b.CurrentVersionID,
		"expiresIn":   expiresIn,
	})
}

func (s *Server) handleListVersions(w http.ResponseWriter, r *http.Request) {
	tenderID := chi.URLParam(r, "tenderId")
	actor, ok := s.requireRole(w, r, domain.OpListVersions, audit.ActionVersionsListed, tenderID)
	if !ok {
		return
	}
	t, b, ok := s.loadBid(w, r, audit.ActionVersionsListed, actor)
	if !ok {
		return
	}

	versions, err := s.blobs.ListVersions(r.Context(), b.ObjectKey)
	if err != nil {
		s.log.Error("version list failed", "key", b.ObjectKey, "error", err)
		s.writeInternal(w, r, audit.ActionVersionsListed, t.TenderID, actor, err)
		return
	}

	type versionView struct {
		VersionID    string    `json:"versionId"`
		Size         int64     `json:"size"`
		LastModified time.Time `json:"lastModified"`
		IsLatest     bool      `json:"isLatest"`
		IsCurrent    bool      `json:"isCurrent"`
	}
	views := make([]versionView, 0, len(versions))
	for _, v := range versions {
		views = append(views, versionView{
			VersionID:    v.VersionID,
			Size:         v.Size,
			LastModified: v.LastModified,
			IsLatest:     v.IsLatest,
			IsCurrent:    v.VersionID == b.CurrentVersionID,
		})
	}

	s.sink.Write(r.Context(), audit.Event{
		UserID:    actor.ID,
		UserRole:  actor.PrimaryRole,
		Action:    audit.ActionVersionsListed,
		TenderID:  t.TenderID,
		FileKey:   b.ObjectKey,
		IPAddress: actor.IP,
		UserAgent: actor.UserAgent,
		Result:    audit.ResultSuccess,
		Metadata:  map[string]string{"versionCount": strconv.Itoa(len(views))},
	})
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"versions": views, "count": len(views)})
}

// handleRestoreVersion copies an older version back as a new latest version
// and repoints the bid row at it. History is never rewritten; a restore only
// appends.
func (s *Server) handleRestoreVersion(w http.ResponseWriter, r *http.Request) {
	tenderID := chi.URLParam(r, "tenderId")
	bidderID := chi.URLParam(r, "bidderId")
	actor, ok := s.requireRole(w, r, domain.OpRestoreVersion, audit.ActionVersionRestored, tenderID)
	if !ok {
		return
	}
	var req restoreRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, requestIDOf(r), httpx.Validation([]httpx.FieldError{{Field: "body", Message: "Request body must be valid JSON"}}))
		return
	}
	if err := req.validate(); err != nil {
		httpx.WriteError(w, requestIDOf(r), err)
		return
	}
	t, b, ok := s.loadBid(w, r, audit.ActionVersionRestored, actor)
	if !ok {
		return
	}

	restored, err := s.blobs.CopyVersion(r.Context(), b.ObjectKey, req.VersionID)
	if err != nil {
		if errors.Is(err, blob.ErrVersionNotFound) || errors.Is(err, blob.ErrNotFound) {
			httpx.WriteError(w, requestIDOf(r), httpx.E(http.StatusNotFound, "BID_NOT_FOUND", "The requested version does not exist"))
			return
		}
		s.log.Error("version restore failed", "key", b.ObjectKey, "versionId", req.VersionID, "error", err)
		s.writeInternal(w, r, audit.ActionVersionRestored, t.TenderID, actor, err)
		return
	}

	updated, err := s.bids.SetCurrentVersion(r.Context(), t.TenderID, bidderID, restored.VersionID, s.now().UTC())
	if err != nil {
		s.log.Error("current version update failed", "tenderId", t.TenderID, "bidderId", bidderID, "error", err)
		s.writeInternal(w, r, audit.ActionVersionRestored, t.TenderID, actor, err)
		return
	}

	s.sink.Write(r.Context(), audit.Event{
		UserID:    actor.ID,
		UserRole:  actor.PrimaryRole,
		Action:    audit.ActionVersionRestored,
		TenderID:  t.TenderID,
		FileKey:   b.ObjectKey,
		VersionID: restored.VersionID,
		IPAddress: actor.IP,
		UserAgent: actor.UserAgent,
		Result:    audit.ResultSuccess,
		Metadata:  map[string]string{"restoredFrom": req.VersionID},
	})
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"message":      "Version restored successfully",
		"newVersionId": restored.VersionID,
		"bid":          viewBid(updated),
	})
}
