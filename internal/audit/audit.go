package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tendervault/tendervault/internal/domain"
)

// Audit actions. One event is written per logical operation attempt,
// including denied and failed ones.
const (
	ActionAuthVerify         = "AUTH_VERIFY"
	ActionTenderCreated      = "TENDER_CREATED"
	ActionTenderUpdated      = "TENDER_UPDATED"
	ActionTenderDeleted      = "TENDER_DELETED"
	ActionTenderViewed       = "TENDER_VIEWED"
	ActionTenderListed       = "TENDER_LISTED"
	ActionUploadURLGenerated = "UPLOAD_URL_GENERATED"
	ActionBidSubmitted       = "BID_SUBMITTED"
	ActionBidsListed         = "BIDS_LISTED"
	ActionDownloadGenerated  = "DOWNLOAD_URL_GENERATED"
	ActionDownloadTimelocked = "DOWNLOAD_DENIED_TIMELOCKED"
	ActionVersionsListed     = "VERSIONS_LISTED"
	ActionVersionRestored    = "VERSION_RESTORED"
	ActionBidStatusUpdated   = "BID_STATUS_UPDATED"
	ActionBidScored          = "BID_SCORED"
	ActionAuditLogViewed     = "AUDIT_LOG_VIEWED"
)

const (
	ResultSuccess = "SUCCESS"
	ResultDenied  = "DENIED"
	ResultError   = "ERROR"
)

const retentionDays = 365

// Event is one append-only audit record. Immutable once written; the
// retention expiry is advisory, nothing in the application deletes events.
type Event struct {
	AuditID         string            `json:"auditId"`
	Timestamp       time.Time         `json:"timestamp"`
	UserID          string            `json:"userId"`
	UserRole        domain.Role       `json:"userRole"`
	Action          string            `json:"action"`
	TenderID        string            `json:"tenderId,omitempty"`
	FileKey         string            `json:"fileKey,omitempty"`
	VersionID       string            `json:"versionId,omitempty"`
	IPAddress       string            `json:"ipAddress"`
	UserAgent       string            `json:"userAgent"`
	Result          string            `json:"result"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	RetentionExpiry time.Time         `json:"retentionExpiry"`
}

// Recorder persists events. The pg implementation lives in internal/store.
type Recorder interface {
	InsertEvent(ctx context.Context, ev Event) error
}

// Sink is the best-effort write side of the audit trail. Write never
// returns an error: a failed insert is logged and swallowed so auditing can
// never fail or block the operation it is recording.
type Sink struct {
	rec Recorder
	log *slog.Logger
	now func() time.Time
}

func NewSink(rec Recorder, log *slog.Logger) *Sink {
	return &Sink{rec: rec, log: log, now: time.Now}
}

func (s *Sink) Write(ctx context.Context, ev Event) {
	now := s.now().UTC()
	ev.AuditID = uuid.NewString()
	ev.Timestamp = now
	ev.RetentionExpiry = now.Add(retentionDays * 24 * time.Hour)
	if ev.UserID == "" {
		ev.UserID = "SYSTEM"
	}
	if ev.UserRole == "" {
		ev.UserRole = domain.RoleNone
	}
	if ev.IPAddress == "" {
		ev.IPAddress = "UNKNOWN"
	}
	if ev.UserAgent == "" {
		ev.UserAgent = "UNKNOWN"
	}
	if err := s.rec.InsertEvent(ctx, ev); err != nil {
		s.log.Error("audit write failed",
			"action", ev.Action,
			"userId", ev.UserID,
			"tenderId", ev.TenderID,
			"error", err)
	}
}

// Filter selects events for the read side. UserID takes precedence over
// TenderID when both are set, matching the two query facets.
type Filter struct {
	UserID   string
	TenderID string
	Action   string
	Limit    int
	Token    string
}
