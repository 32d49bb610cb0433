package identity

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var ErrUnauthorized = errors.New("unauthorized")

// Claims is the verified claim bundle the rest of the system consumes. The
// identity provider signs access tokens with an HMAC shared secret; the
// verifier checks signature and expiry and hands back only {sub, groups,
// email}.
type Claims struct {
	Groups []string `json:"groups"`
	Email  string   `json:"email"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// VerifyBearer parses and verifies an Authorization header value and returns
// the claim set. Any failure collapses to ErrUnauthorized; the caller never
// learns why a token was rejected.
func (v *Verifier) VerifyBearer(authorization string) (*Claims, error) {
	token, ok := parseBearerToken(authorization)
	if !ok {
		return nil, ErrUnauthorized
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnauthorized
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrUnauthorized
	}
	if claims.Subject == "" {
		return nil, ErrUnauthorized
	}
	return claims, nil
}

func parseBearerToken(authorization string) (string, bool) {
	authorization = strings.TrimSpace(authorization)
	if authorization == "" {
		return "", false
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(authorization, prefix) {
		return "", false
	}
	token := strings.TrimSpace(authorization[len(prefix):])
	return token, token != ""
}
