package store

import (
	"testing"
	"time"
)

func TestPageToken_RoundTrip(t *testing.T) {
	k := pageKey{TS: time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC), AuditID: "a-42"}
	got, err := decodeToken(encodeToken(k))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.TS.Equal(k.TS) || got.AuditID != k.AuditID {
		t.Fatalf("got %+v, want %+v", got, k)
	}
}

func TestPageToken_RejectsGarbage(t *testing.T) {
	cases := []string{
		"not-base64!!!",
		"aGVsbG8=",                 // base64 of "hello", not JSON
		"e30=",                     // base64 of "{}", missing fields
		"eyJhdWRpdElkIjoiYSJ9", // missing ts
	}
	for _, tc := range cases {
		if _, err := decodeToken(tc); err == nil {
			t.Errorf("decodeToken(%q) accepted", tc)
		}
	}
}
