package domain

import "time"

// BidStatus tracks the upload lifecycle of the bid document.
type BidStatus string

const (
	BidPending      BidStatus = "PENDING"
	BidSubmitted    BidStatus = "SUBMITTED"
	BidDisqualified BidStatus = "DISQUALIFIED"
)

// EvalStage is the separate, admin-set evaluation stage of a bid.
type EvalStage string

const (
	EvalUnderReview  EvalStage = "UNDER_REVIEW"
	EvalShortlisted  EvalStage = "SHORTLISTED"
	EvalDisqualified EvalStage = "DISQUALIFIED"
	EvalAwarded      EvalStage = "AWARDED"
)

func ValidEvalStage(s EvalStage) bool {
	switch s {
	case EvalUnderReview, EvalShortlisted, EvalDisqualified, EvalAwarded:
		return true
	}
	return false
}

// ScoreEntry is one evaluator's score for a bid. Each evaluator holds at
// most one entry; rescoring overwrites it.
type ScoreEntry struct {
	Score    int       `json:"score"`
	Notes    string    `json:"notes,omitempty"`
	ScoredAt time.Time `json:"scoredAt"`
}

// Bid is the single current submission by a bidder on a tender. The
// document itself lives in the content store under ObjectKey; the bid row
// only references the current version.
type Bid struct {
	TenderID         string                `json:"tenderId"`
	BidderID         string                `json:"bidderId"`
	ObjectKey        string                `json:"s3Key"`
	CurrentVersionID string                `json:"currentVersionId,omitempty"`
	FileName         string                `json:"fileName"`
	FileSize         int64                 `json:"fileSize"`
	BidderEmail      string                `json:"-"`
	Status           BidStatus             `json:"status"`
	EvalStage        EvalStage             `json:"bidStatus,omitempty"`
	EvaluationScores map[string]ScoreEntry `json:"evaluationScores,omitempty"`
	SubmittedAt      time.Time             `json:"submittedAt"`
	UpdatedAt        time.Time             `json:"updatedAt"`
}

// AverageScore is computed on read, never stored. Returns 0 and false when
// no evaluator has scored yet.
func AverageScore(scores map[string]ScoreEntry) (float64, bool) {
	if len(scores) == 0 {
		return 0, false
	}
	sum := 0
	for _, e := range scores {
		sum += e.Score
	}
	return float64(sum) / float64(len(scores)), true
}
