// Package ingest processes content-store "object created" notifications and
// turns them into confirmed bid submissions. Delivery is at-least-once and
// unordered; every step here has to tolerate duplicates and junk.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tendervault/tendervault/internal/audit"
	"github.com/tendervault/tendervault/internal/domain"
	"github.com/tendervault/tendervault/internal/notify"
)

// Event is one object-created notification from the content store.
type Event struct {
	Bucket    string `json:"bucket"`
	Key       string `json:"key"`
	VersionID string `json:"versionId"`
	Size      int64  `json:"size"`
}

// BidConfirmer is the slice of the bid store the processor needs.
type BidConfirmer interface {
	ConfirmSubmitted(ctx context.Context, tenderID, bidderID, versionID string, size int64, now time.Time) (domain.Bid, error)
}

type Processor struct {
	bids   BidConfirmer
	sink   *audit.Sink
	mailer notify.Mailer
	log    *slog.Logger
	now    func() time.Time
}

func NewProcessor(bids BidConfirmer, sink *audit.Sink, mailer notify.Mailer, log *slog.Logger) *Processor {
	return &Processor{bids: bids, sink: sink, mailer: mailer, log: log, now: time.Now}
}

// Process handles a batch. Each event is an independent unit of work: a
// malformed key or a store failure is logged and skipped, never aborting the
// rest of the batch. Reprocessing a delivered event sets the same fields to
// the same values; only the confirmation email may repeat, which is
// accepted.
func (p *Processor) Process(ctx context.Context, events []Event) {
	for _, ev := range events {
		if err := p.processOne(ctx, ev); err != nil {
			p.log.Error("upload confirmation failed", "key", ev.Key, "versionId", ev.VersionID, "error", err)
		}
	}
}

func (p *Processor) processOne(ctx context.Context, ev Event) error {
	tenderID, bidderID, err := ParseObjectKey(ev.Key)
	if err != nil {
		return err
	}

	now := p.now().UTC()
	bid, err := p.bids.ConfirmSubmitted(ctx, tenderID, bidderID, ev.VersionID, ev.Size, now)
	if err != nil {
		return fmt.Errorf("confirm bid %s/%s: %w", tenderID, bidderID, err)
	}

	notify.BestEffort(ctx, p.mailer, p.log, bid.BidderEmail,
		"TenderVault - Bid Submitted Successfully",
		fmt.Sprintf("Your bid document has been successfully submitted.\n\nTender ID: %s\nFile: %s\nSubmitted at: %s\n\nLog in to TenderVault to track your submission status.",
			tenderID, bid.FileName, now.Format(time.RFC3339)))

	p.sink.Write(ctx, audit.Event{
		Action:    audit.ActionBidSubmitted,
		UserID:    bidderID,
		UserRole:  domain.RoleBidder,
		TenderID:  tenderID,
		FileKey:   ev.Key,
		VersionID: ev.VersionID,
		Result:    audit.ResultSuccess,
		Metadata:  map[string]string{"bucket": ev.Bucket, "size": fmt.Sprint(ev.Size)},
	})
	return nil
}

// ParseObjectKey splits a bid object key of the form
// {tenderId}/{bidderId}/{timestamp}-{fileName}.
func ParseObjectKey(key string) (tenderID, bidderID string, err error) {
	parts := strings.Split(key, "/")
	if len(parts) < 3 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid object key structure: %q", key)
	}
	return parts[0], parts[1], nil
}
