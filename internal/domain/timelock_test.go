package domain

import (
	"testing"
	"time"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func tenderWithDeadline(status TenderStatus, deadline time.Time) Tender {
	return Tender{TenderID: "t1", Status: status, Deadline: deadline}
}

func TestEffectiveStatus_OpenDegradesToClosedAtDeadline(t *testing.T) {
	tn := tenderWithDeadline(TenderOpen, baseTime)

	if got := tn.EffectiveStatus(baseTime.Add(-time.Second)); got != TenderOpen {
		t.Fatalf("before deadline: got %s, want OPEN", got)
	}
	if got := tn.EffectiveStatus(baseTime); got != TenderClosed {
		t.Fatalf("at deadline: got %s, want CLOSED", got)
	}
	if got := tn.EffectiveStatus(baseTime.Add(time.Hour)); got != TenderClosed {
		t.Fatalf("after deadline: got %s, want CLOSED", got)
	}
	if tn.StoredStatus() != TenderOpen {
		t.Fatalf("stored status must stay OPEN, got %s", tn.StoredStatus())
	}
}

func TestEffectiveStatus_ArchivedIsSticky(t *testing.T) {
	tn := tenderWithDeadline(TenderArchived, baseTime.Add(time.Hour))
	if got := tn.EffectiveStatus(baseTime.Add(2 * time.Hour)); got != TenderArchived {
		t.Fatalf("archived tender past deadline: got %s, want ARCHIVED", got)
	}
	if got := tn.EffectiveStatus(baseTime); got != TenderArchived {
		t.Fatalf("archived tender before deadline: got %s, want ARCHIVED", got)
	}
}

func TestSealed(t *testing.T) {
	tn := tenderWithDeadline(TenderOpen, baseTime)
	if !Sealed(tn, baseTime.Add(-time.Millisecond)) {
		t.Fatal("tender must be sealed before the deadline")
	}
	if Sealed(tn, baseTime) {
		t.Fatal("tender must unlock exactly at the deadline")
	}
}

func TestSecondsRemaining_RoundsUp(t *testing.T) {
	tn := tenderWithDeadline(TenderOpen, baseTime)

	if got := SecondsRemaining(tn, baseTime.Add(-2*time.Hour)); got != 7200 {
		t.Fatalf("got %d, want 7200", got)
	}
	if got := SecondsRemaining(tn, baseTime.Add(-1500*time.Millisecond)); got != 2 {
		t.Fatalf("fractional second must round up: got %d, want 2", got)
	}
	if got := SecondsRemaining(tn, baseTime.Add(time.Hour)); got != 0 {
		t.Fatalf("after deadline: got %d, want 0", got)
	}
}

func TestAcceptingBids(t *testing.T) {
	cases := []struct {
		name   string
		status TenderStatus
		now    time.Time
		want   bool
	}{
		{"open before deadline", TenderOpen, baseTime.Add(-time.Minute), true},
		{"open at deadline", TenderOpen, baseTime, false},
		{"closed before deadline", TenderClosed, baseTime.Add(-time.Minute), false},
		{"archived before deadline", TenderArchived, baseTime.Add(-time.Minute), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tn := tenderWithDeadline(tc.status, baseTime)
			if got := AcceptingBids(tn, tc.now); got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}
