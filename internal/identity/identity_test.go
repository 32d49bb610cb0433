package identity

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tendervault/tendervault/internal/domain"
)

func TestFromClaims_MapsRolesAndOrigin(t *testing.T) {
	r := httptest.NewRequest("GET", "/tenders", nil)
	r.RemoteAddr = "10.1.2.3:55000"
	r.Header.Set("User-Agent", "curl/8.0")

	actor := FromClaims("user-1", []string{"tv-bidder", "tv-admin", "some-other-group"}, "u@example.com", r)

	if actor.ID != "user-1" || actor.Email != "u@example.com" {
		t.Fatalf("actor = %+v", actor)
	}
	if len(actor.Roles) != 2 {
		t.Fatalf("roles = %v, want the two recognized roles", actor.Roles)
	}
	if actor.PrimaryRole != domain.RoleAdmin {
		t.Fatalf("primary role = %s, want tv-admin regardless of claim order", actor.PrimaryRole)
	}
	if actor.IP != "10.1.2.3" {
		t.Fatalf("ip = %s", actor.IP)
	}
	if actor.UserAgent != "curl/8.0" {
		t.Fatalf("user agent = %s", actor.UserAgent)
	}
}

func TestFromClaims_ForwardedForWins(t *testing.T) {
	r := httptest.NewRequest("GET", "/tenders", nil)
	r.RemoteAddr = "10.0.0.1:4242"
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	actor := FromClaims("user-1", nil, "", r)
	if actor.IP != "203.0.113.9" {
		t.Fatalf("ip = %s, want first X-Forwarded-For entry", actor.IP)
	}
	if actor.UserAgent != "UNKNOWN" {
		t.Fatalf("user agent = %s", actor.UserAgent)
	}
}

func TestFromClaims_NoGroupsMeansNoRoles(t *testing.T) {
	r := httptest.NewRequest("GET", "/tenders", nil)
	actor := FromClaims("user-2", nil, "", r)
	if len(actor.Roles) != 0 {
		t.Fatalf("roles = %v, want empty", actor.Roles)
	}
	if actor.PrimaryRole != domain.RoleNone {
		t.Fatalf("primary role = %s, want NONE", actor.PrimaryRole)
	}
	if actor.Email != "user-2" {
		t.Fatalf("email fallback = %s, want subject", actor.Email)
	}
}

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestVerifyBearer(t *testing.T) {
	v := NewVerifier("test-secret")
	claims := Claims{
		Groups: []string{"tv-evaluator"},
		Email:  "e@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-3",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	got, err := v.VerifyBearer("Bearer " + signToken(t, "test-secret", claims))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got.Subject != "user-3" || got.Email != "e@example.com" || len(got.Groups) != 1 {
		t.Fatalf("claims = %+v", got)
	}
}

func TestVerifyBearer_Rejects(t *testing.T) {
	v := NewVerifier("test-secret")
	valid := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-4",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	expired := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-4",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}}

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"empty token", "Bearer "},
		{"wrong secret", "Bearer " + signToken(t, "other-secret", valid)},
		{"expired", "Bearer " + signToken(t, "test-secret", expired)},
		{"garbage", "Bearer not.a.jwt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := v.VerifyBearer(tc.header); err == nil {
				t.Fatal("expected rejection")
			}
		})
	}
}

func TestVerifyBearer_RejectsMissingSubject(t *testing.T) {
	v := NewVerifier("test-secret")
	noSub := Claims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	if _, err := v.VerifyBearer("Bearer " + signToken(t, "test-secret", noSub)); err == nil {
		t.Fatal("expected rejection for token without sub")
	}
}
