package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/tendervault/tendervault/internal/audit"
	"github.com/tendervault/tendervault/internal/domain"
	"github.com/tendervault/tendervault/internal/store"
	"github.com/tendervault/tendervault/pkg/httpx"
)

// handleListAuditLogs is the read side of the trail. Reading it is itself
// audited, and the viewing event names which facet was queried.
func (s *Server) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.requireRole(w, r, domain.OpListAuditLog, audit.ActionAuditLogViewed, "")
	if !ok {
		return
	}

	q := r.URL.Query()
	f := audit.Filter{
		UserID:   q.Get("userId"),
		TenderID: q.Get("tenderId"),
		Action:   q.Get("action"),
		Token:    q.Get("nextToken"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			httpx.WriteError(w, requestIDOf(r), httpx.Validation([]httpx.FieldError{{Field: "limit", Message: "limit must be a positive integer"}}))
			return
		}
		f.Limit = limit
	}

	events, nextToken, err := s.auditLog.List(r.Context(), f)
	if err != nil {
		if errors.Is(err, store.ErrBadToken) {
			httpx.WriteError(w, requestIDOf(r), httpx.Validation([]httpx.FieldError{{Field: "nextToken", Message: "nextToken is not a valid pagination token"}}))
			return
		}
		s.log.Error("audit log query failed", "error", err)
		s.writeInternal(w, r, audit.ActionAuditLogViewed, "", actor, err)
		return
	}

	meta := map[string]string{"resultCount": strconv.Itoa(len(events))}
	if f.UserID != "" {
		meta["queriedUser"] = f.UserID
	} else if f.TenderID != "" {
		meta["queriedTender"] = f.TenderID
	}
	s.sink.Write(r.Context(), audit.Event{
		UserID:    actor.ID,
		UserRole:  actor.PrimaryRole,
		Action:    audit.ActionAuditLogViewed,
		IPAddress: actor.IP,
		UserAgent: actor.UserAgent,
		Result:    audit.ResultSuccess,
		Metadata:  meta,
	})

	resp := map[string]any{"events": events, "count": len(events)}
	if nextToken != "" {
		resp["nextToken"] = nextToken
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
