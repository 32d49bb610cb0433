package domain

import "time"

type TenderStatus string

const (
	TenderOpen     TenderStatus = "OPEN"
	TenderClosed   TenderStatus = "CLOSED"
	TenderArchived TenderStatus = "ARCHIVED"
)

func ValidTenderStatus(s TenderStatus) bool {
	switch s {
	case TenderOpen, TenderClosed, TenderArchived:
		return true
	}
	return false
}

// Tender is a procurement round. Status holds the persisted value; what is
// presented to callers is EffectiveStatus, which degrades OPEN to CLOSED once
// the deadline passes without ever writing that back.
type Tender struct {
	TenderID    string       `json:"tenderId"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Deadline    time.Time    `json:"deadline"`
	CreatedBy   string       `json:"createdBy"`
	Status      TenderStatus `json:"status"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// StoredStatus is the persisted status and gates mutations (uploads are only
// accepted while the stored value is OPEN).
func (t Tender) StoredStatus() TenderStatus { return t.Status }

// EffectiveStatus is the derived, presentation-facing status. ARCHIVED is
// sticky. A stored OPEN presents as CLOSED once now reaches the deadline.
func (t Tender) EffectiveStatus(now time.Time) TenderStatus {
	if t.Status == TenderOpen && !now.Before(t.Deadline) {
		return TenderClosed
	}
	return t.Status
}
