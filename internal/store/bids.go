package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendervault/tendervault/internal/domain"
)

type BidStore struct {
	db *pgxpool.Pool
}

func NewBidStore(db *pgxpool.Pool) *BidStore { return &BidStore{db: db} }

const bidColumns = `tender_id, bidder_id, object_key, current_version_id, file_name, file_size,
bidder_email, status, bid_status, evaluation_scores, submitted_at, updated_at`

func scanBid(row pgx.Row) (domain.Bid, error) {
	var b domain.Bid
	var currentVersion, bidderEmail, evalStage *string
	var scores []byte
	err := row.Scan(&b.TenderID, &b.BidderID, &b.ObjectKey, &currentVersion, &b.FileName, &b.FileSize,
		&bidderEmail, &b.Status, &evalStage, &scores, &b.SubmittedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Bid{}, ErrNotFound
		}
		return domain.Bid{}, err
	}
	if currentVersion != nil {
		b.CurrentVersionID = *currentVersion
	}
	if bidderEmail != nil {
		b.BidderEmail = *bidderEmail
	}
	if evalStage != nil {
		b.EvalStage = domain.EvalStage(*evalStage)
	}
	if len(scores) > 0 {
		if err := json.Unmarshal(scores, &b.EvaluationScores); err != nil {
			return domain.Bid{}, err
		}
	}
	return b, nil
}

// PutPending creates or replaces the bid record when an upload URL is
// issued. Re-requesting a URL points the same (tender, bidder) row at a
// fresh object key and resets the upload state to PENDING.
func (s *BidStore) PutPending(ctx context.Context, b domain.Bid) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO bids(tender_id, bidder_id, object_key, file_name, file_size, bidder_email, status, submitted_at, updated_at)
VALUES($1, $2, $3, $4, $5, $6, 'PENDING', $7, $7)
ON CONFLICT (tender_id, bidder_id) DO UPDATE SET
  object_key=$3, file_name=$4, file_size=$5, bidder_email=$6,
  status='PENDING', current_version_id=NULL, updated_at=$7`,
		b.TenderID, b.BidderID, b.ObjectKey, b.FileName, b.FileSize, b.BidderEmail, b.UpdatedAt)
	return err
}

func (s *BidStore) Get(ctx context.Context, tenderID, bidderID string) (domain.Bid, error) {
	return scanBid(s.db.QueryRow(ctx, `
SELECT `+bidColumns+` FROM bids WHERE tender_id=$1 AND bidder_id=$2`, tenderID, bidderID))
}

func (s *BidStore) ListByTender(ctx context.Context, tenderID string) ([]domain.Bid, error) {
	rows, err := s.db.Query(ctx, `
SELECT `+bidColumns+` FROM bids WHERE tender_id=$1 ORDER BY bidder_id`, tenderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *BidStore) CountByTender(ctx context.Context, tenderID string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `SELECT count(*) FROM bids WHERE tender_id=$1`, tenderID).Scan(&n)
	return n, err
}

// ConfirmSubmitted marks the bid SUBMITTED and records the stored version.
// The update is a plain field set keyed by (tender, bidder), so replaying
// the same content-store notification is a state-level no-op.
func (s *BidStore) ConfirmSubmitted(ctx context.Context, tenderID, bidderID, versionID string, size int64, now time.Time) (domain.Bid, error) {
	return scanBid(s.db.QueryRow(ctx, `
UPDATE bids SET status='SUBMITTED', current_version_id=$3, file_size=$4, updated_at=$5
WHERE tender_id=$1 AND bidder_id=$2
RETURNING `+bidColumns, tenderID, bidderID, versionID, size, now))
}

func (s *BidStore) SetCurrentVersion(ctx context.Context, tenderID, bidderID, versionID string, now time.Time) (domain.Bid, error) {
	return scanBid(s.db.QueryRow(ctx, `
UPDATE bids SET current_version_id=$3, updated_at=$4
WHERE tender_id=$1 AND bidder_id=$2
RETURNING `+bidColumns, tenderID, bidderID, versionID, now))
}

func (s *BidStore) SetEvalStage(ctx context.Context, tenderID, bidderID string, stage domain.EvalStage, now time.Time) (domain.Bid, error) {
	return scanBid(s.db.QueryRow(ctx, `
UPDATE bids SET bid_status=$3, updated_at=$4
WHERE tender_id=$1 AND bidder_id=$2
RETURNING `+bidColumns, tenderID, bidderID, stage, now))
}

// UpsertScore writes one evaluator's entry in a single atomic statement.
// jsonb_set over a coalesced map creates the container and the sub-key
// together, so two evaluators scoring a bid for the first time concurrently
// cannot lose each other's entries.
func (s *BidStore) UpsertScore(ctx context.Context, tenderID, bidderID, evaluatorID string, entry domain.ScoreEntry, now time.Time) (domain.Bid, error) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return domain.Bid{}, err
	}
	return scanBid(s.db.QueryRow(ctx, `
UPDATE bids SET
  evaluation_scores = jsonb_set(coalesce(evaluation_scores, '{}'::jsonb), ARRAY[$3], $4::jsonb),
  updated_at=$5
WHERE tender_id=$1 AND bidder_id=$2
RETURNING `+bidColumns, tenderID, bidderID, evaluatorID, payload, now))
}
