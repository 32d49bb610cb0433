package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tendervault/tendervault/internal/audit"
	"github.com/tendervault/tendervault/internal/domain"
	"github.com/tendervault/tendervault/internal/notify"
	"github.com/tendervault/tendervault/pkg/httpx"
)

// handleSetBidStatus moves a bid through the evaluation stages. Stage moves
// carry no deadline gate: an admin can disqualify a bid while the tender is
// still sealed. The bidder is notified best-effort.
func (s *Server) handleSetBidStatus(w http.ResponseWriter, r *http.Request) {
	tenderID := chi.URLParam(r, "tenderId")
	bidderID := chi.URLParam(r, "bidderId")
	actor, ok := s.requireRole(w, r, domain.OpSetBidStatus, audit.ActionBidStatusUpdated, tenderID)
	if !ok {
		return
	}
	var req bidStatusRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, requestIDOf(r), httpx.Validation([]httpx.FieldError{{Field: "body", Message: "Request body must be valid JSON"}}))
		return
	}
	stage, err := req.validate()
	if err != nil {
		httpx.WriteError(w, requestIDOf(r), err)
		return
	}
	t, b, ok := s.loadBid(w, r, audit.ActionBidStatusUpdated, actor)
	if !ok {
		return
	}

	updated, err := s.bids.SetEvalStage(r.Context(), t.TenderID, bidderID, stage, s.now().UTC())
	if err != nil {
		s.log.Error("bid stage update failed", "tenderId", t.TenderID, "bidderId", bidderID, "error", err)
		s.writeInternal(w, r, audit.ActionBidStatusUpdated, t.TenderID, actor, err)
		return
	}

	if b.BidderEmail != "" {
		notify.BestEffort(r.Context(), s.mailer, s.log, b.BidderEmail,
			"TenderVault - Bid Status Update",
			fmt.Sprintf("The status of your bid on tender %q is now %s.", t.Title, stage))
	}

	s.sink.Write(r.Context(), audit.Event{
		UserID:    actor.ID,
		UserRole:  actor.PrimaryRole,
		Action:    audit.ActionBidStatusUpdated,
		TenderID:  t.TenderID,
		IPAddress: actor.IP,
		UserAgent: actor.UserAgent,
		Result:    audit.ResultSuccess,
		Metadata: map[string]string{
			"bidderId":  bidderID,
			"oldStatus": string(b.EvalStage),
			"newStatus": string(stage),
		},
	})
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Bid status updated successfully",
		"bid":     viewBid(updated),
	})
}

// handleScoreBid records the caller's score for a bid. One entry per
// evaluator; scoring again replaces the earlier entry, and the average is
// recomputed from whatever entries exist.
func (s *Server) handleScoreBid(w http.ResponseWriter, r *http.Request) {
	tenderID := chi.URLParam(r, "tenderId")
	bidderID := chi.URLParam(r, "bidderId")
	actor, ok := s.requireRole(w, r, domain.OpScoreBid, audit.ActionBidScored, tenderID)
	if !ok {
		return
	}
	var req scoreRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, requestIDOf(r), httpx.Validation([]httpx.FieldError{{Field: "body", Message: "Request body must be valid JSON"}}))
		return
	}
	if err := req.validate(); err != nil {
		httpx.WriteError(w, requestIDOf(r), err)
		return
	}
	t, _, ok := s.loadSealedBid(w, r, audit.ActionBidScored, actor)
	if !ok {
		return
	}

	now := s.now().UTC()
	entry := domain.ScoreEntry{Score: req.Score, Notes: req.Notes, ScoredAt: now}
	updated, err := s.bids.UpsertScore(r.Context(), t.TenderID, bidderID, actor.ID, entry, now)
	if err != nil {
		s.log.Error("score upsert failed", "tenderId", t.TenderID, "bidderId", bidderID, "error", err)
		s.writeInternal(w, r, audit.ActionBidScored, t.TenderID, actor, err)
		return
	}

	view := viewBid(updated)
	s.sink.Write(r.Context(), audit.Event{
		UserID:    actor.ID,
		UserRole:  actor.PrimaryRole,
		Action:    audit.ActionBidScored,
		TenderID:  t.TenderID,
		IPAddress: actor.IP,
		UserAgent: actor.UserAgent,
		Result:    audit.ResultSuccess,
		Metadata: map[string]string{
			"bidderId": bidderID,
			"score":    strconv.Itoa(req.Score),
		},
	})
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Score recorded successfully",
		"bid":     view,
	})
}
