package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tendervault/tendervault/internal/audit"
	"github.com/tendervault/tendervault/internal/domain"
	"github.com/tendervault/tendervault/internal/identity"
	"github.com/tendervault/tendervault/internal/store"
	"github.com/tendervault/tendervault/pkg/httpx"
)

// requireRole gates a handler on the authorization matrix. The denial is
// audited before the 403 is written, so the trail records attempts as well
// as successes.
func (s *Server) requireRole(w http.ResponseWriter, r *http.Request, op domain.Operation, action, tenderID string) (identity.ActorContext, bool) {
	actor := actorOf(r)
	if domain.Allowed(op, actor.Roles) {
		return actor, true
	}
	s.sink.Write(r.Context(), audit.Event{
		UserID:    actor.ID,
		UserRole:  actor.PrimaryRole,
		Action:    action,
		TenderID:  tenderID,
		IPAddress: actor.IP,
		UserAgent: actor.UserAgent,
		Result:    audit.ResultDenied,
		Metadata:  map[string]string{"reason": "Insufficient role"},
	})
	httpx.WriteError(w, requestIDOf(r), httpx.E(http.StatusForbidden, "AUTH_INSUFFICIENT_ROLE", "You do not have permission to perform this action"))
	return actor, false
}

// tenderView is the outward shape of a tender: the status field carries the
// effective status, never the raw stored one.
type tenderView struct {
	domain.Tender
	Status domain.TenderStatus `json:"status"`
}

func viewTender(t domain.Tender, now time.Time) tenderView {
	return tenderView{Tender: t, Status: t.EffectiveStatus(now)}
}

func (s *Server) handleCreateTender(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.requireRole(w, r, domain.OpCreateTender, audit.ActionTenderCreated, "")
	if !ok {
		return
	}
	var req createTenderRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, requestIDOf(r), httpx.Validation([]httpx.FieldError{{Field: "body", Message: "Request body must be valid JSON"}}))
		return
	}
	now := s.now()
	title, description, deadline, err := req.validate(now)
	if err != nil {
		httpx.WriteError(w, requestIDOf(r), err)
		return
	}

	t := domain.Tender{
		TenderID:    uuid.NewString(),
		Title:       title,
		Description: description,
		Deadline:    deadline.UTC(),
		CreatedBy:   actor.ID,
		Status:      domain.TenderOpen,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}
	if err := s.tenders.Create(r.Context(), t); err != nil {
		s.log.Error("tender create failed", "tenderId", t.TenderID, "error", err)
		s.writeInternal(w, r, audit.ActionTenderCreated, t.TenderID, actor, err)
		return
	}

	s.sink.Write(r.Context(), audit.Event{
		UserID:    actor.ID,
		UserRole:  actor.PrimaryRole,
		Action:    audit.ActionTenderCreated,
		TenderID:  t.TenderID,
		IPAddress: actor.IP,
		UserAgent: actor.UserAgent,
		Result:    audit.ResultSuccess,
		Metadata:  map[string]string{"title": t.Title, "deadline": t.Deadline.Format(time.RFC3339)},
	})
	httpx.WriteJSON(w, http.StatusCreated, viewTender(t, now))
}

// visibleTo narrows the tender list per role: bidders see effectively OPEN
// tenders only, evaluators OPEN and CLOSED, admins everything.
func visibleTo(role domain.Role, t domain.Tender, now time.Time) bool {
	switch role {
	case domain.RoleAdmin:
		return true
	case domain.RoleEvaluator:
		return t.EffectiveStatus(now) != domain.TenderArchived
	case domain.RoleBidder:
		return t.EffectiveStatus(now) == domain.TenderOpen
	}
	return false
}

func (s *Server) handleListTenders(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.requireRole(w, r, domain.OpListTenders, audit.ActionTenderListed, "")
	if !ok {
		return
	}
	all, err := s.tenders.List(r.Context())
	if err != nil {
		s.log.Error("tender list failed", "error", err)
		s.writeInternal(w, r, audit.ActionTenderListed, "", actor, err)
		return
	}
	now := s.now()
	views := make([]tenderView, 0, len(all))
	for _, t := range all {
		if visibleTo(actor.PrimaryRole, t, now) {
			views = append(views, viewTender(t, now))
		}
	}

	s.sink.Write(r.Context(), audit.Event{
		UserID:    actor.ID,
		UserRole:  actor.PrimaryRole,
		Action:    audit.ActionTenderListed,
		IPAddress: actor.IP,
		UserAgent: actor.UserAgent,
		Result:    audit.ResultSuccess,
	})
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"tenders": views, "count": len(views)})
}

func (s *Server) handleGetTender(w http.ResponseWriter, r *http.Request) {
	tenderID := chi.URLParam(r, "tenderId")
	actor, ok := s.requireRole(w, r, domain.OpGetTender, audit.ActionTenderViewed, tenderID)
	if !ok {
		return
	}
	t, err := s.tenders.Get(r.Context(), tenderID)
	if err != nil {
		s.writeTenderLookupError(w, r, audit.ActionTenderViewed, tenderID, actor, err)
		return
	}

	s.sink.Write(r.Context(), audit.Event{
		UserID:    actor.ID,
		UserRole:  actor.PrimaryRole,
		Action:    audit.ActionTenderViewed,
		TenderID:  tenderID,
		IPAddress: actor.IP,
		UserAgent: actor.UserAgent,
		Result:    audit.ResultSuccess,
	})
	httpx.WriteJSON(w, http.StatusOK, viewTender(t, s.now()))
}

func (s *Server) handleUpdateTender(w http.ResponseWriter, r *http.Request) {
	tenderID := chi.URLParam(r, "tenderId")
	actor, ok := s.requireRole(w, r, domain.OpUpdateTender, audit.ActionTenderUpdated, tenderID)
	if !ok {
		return
	}
	var req updateTenderRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, requestIDOf(r), httpx.Validation([]httpx.FieldError{{Field: "body", Message: "Request body must be valid JSON"}}))
		return
	}
	now := s.now()
	upd, err := req.validate(now)
	if err != nil {
		httpx.WriteError(w, requestIDOf(r), err)
		return
	}

	t, err := s.tenders.Update(r.Context(), tenderID, upd, now.UTC())
	if err != nil {
		s.writeTenderLookupError(w, r, audit.ActionTenderUpdated, tenderID, actor, err)
		return
	}

	s.sink.Write(r.Context(), audit.Event{
		UserID:    actor.ID,
		UserRole:  actor.PrimaryRole,
		Action:    audit.ActionTenderUpdated,
		TenderID:  tenderID,
		IPAddress: actor.IP,
		UserAgent: actor.UserAgent,
		Result:    audit.ResultSuccess,
		Metadata:  map[string]string{"updatedFields": strings.Join(upd.Fields(), ",")},
	})
	httpx.WriteJSON(w, http.StatusOK, viewTender(t, now))
}

func (s *Server) handleDeleteTender(w http.ResponseWriter, r *http.Request) {
	tenderID := chi.URLParam(r, "tenderId")
	actor, ok := s.requireRole(w, r, domain.OpDeleteTender, audit.ActionTenderDeleted, tenderID)
	if !ok {
		return
	}

	// The delete does not cascade to bids; the count of bids left behind is
	// recorded so the trail shows what was orphaned.
	orphaned, countErr := s.bids.CountByTender(r.Context(), tenderID)
	if countErr != nil {
		s.log.Warn("orphan count failed", "tenderId", tenderID, "error", countErr)
	}

	if err := s.tenders.Delete(r.Context(), tenderID); err != nil {
		s.writeTenderLookupError(w, r, audit.ActionTenderDeleted, tenderID, actor, err)
		return
	}

	s.sink.Write(r.Context(), audit.Event{
		UserID:    actor.ID,
		UserRole:  actor.PrimaryRole,
		Action:    audit.ActionTenderDeleted,
		TenderID:  tenderID,
		IPAddress: actor.IP,
		UserAgent: actor.UserAgent,
		Result:    audit.ResultSuccess,
		Metadata:  map[string]string{"orphanedBids": strconv.Itoa(orphaned)},
	})
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"message": "Tender deleted successfully", "tenderId": tenderID})
}

// writeTenderLookupError maps store errors from a tender-scoped operation:
// not-found becomes a 404, anything else is audited as ERROR and masked.
func (s *Server) writeTenderLookupError(w http.ResponseWriter, r *http.Request, action, tenderID string, actor identity.ActorContext, err error) {
	if errors.Is(err, store.ErrNotFound) {
		httpx.WriteError(w, requestIDOf(r), httpx.E(http.StatusNotFound, "TENDER_NOT_FOUND", "Tender not found"))
		return
	}
	s.log.Error("tender operation failed", "action", action, "tenderId", tenderID, "error", err)
	s.writeInternal(w, r, action, tenderID, actor, err)
}

func (s *Server) writeInternal(w http.ResponseWriter, r *http.Request, action, tenderID string, actor identity.ActorContext, err error) {
	s.sink.Write(r.Context(), audit.Event{
		UserID:    actor.ID,
		UserRole:  actor.PrimaryRole,
		Action:    action,
		TenderID:  tenderID,
		IPAddress: actor.IP,
		UserAgent: actor.UserAgent,
		Result:    audit.ResultError,
		Metadata:  map[string]string{"error": err.Error()},
	})
	httpx.WriteError(w, requestIDOf(r), httpx.E(http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"))
}
