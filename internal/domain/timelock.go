package domain

import "time"

// The time-lock is the defining property of the sealed-bid design: reviewers
// are blocked before the deadline, bidders are blocked after it. Every
// operation that would reveal bid existence, content or metadata must consult
// Sealed before touching the content store.

// Sealed reports whether bid content is still unreadable: true strictly
// before the deadline.
func Sealed(t Tender, now time.Time) bool {
	return now.Before(t.Deadline)
}

// SecondsRemaining is the time left until the tender unlocks, rounded up.
// Zero once the deadline has passed.
func SecondsRemaining(t Tender, now time.Time) int64 {
	if !now.Before(t.Deadline) {
		return 0
	}
	d := t.Deadline.Sub(now)
	secs := int64(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs
}

// AcceptingBids is the mirrored gate for uploads: the stored status must be
// OPEN and the deadline must not have passed.
func AcceptingBids(t Tender, now time.Time) bool {
	return t.Status == TenderOpen && now.Before(t.Deadline)
}
