package identity

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/tendervault/tendervault/internal/domain"
)

// ActorContext is the typed actor every handler works with. It is built
// once per request from verified claims plus request origin metadata and
// carries everything the audit trail needs.
type ActorContext struct {
	ID          string
	Roles       []domain.Role
	PrimaryRole domain.Role
	Email       string
	IP          string
	UserAgent   string
}

// FromClaims maps a verified claim set onto an ActorContext. Groups that are
// not recognized roles are dropped; an actor with no recognized group ends up
// with an empty role set and fails every role gate.
func FromClaims(sub string, groups []string, email string, r *http.Request) ActorContext {
	roles := make([]domain.Role, 0, len(groups))
	for _, g := range groups {
		switch role := domain.Role(g); role {
		case domain.RoleAdmin, domain.RoleBidder, domain.RoleEvaluator:
			roles = append(roles, role)
		}
	}
	if sub == "" {
		sub = "UNKNOWN"
	}
	if email == "" {
		email = sub
	}
	return ActorContext{
		ID:          sub,
		Roles:       roles,
		PrimaryRole: domain.PrimaryRole(roles),
		Email:       email,
		IP:          sourceIP(r),
		UserAgent:   userAgent(r),
	}
}

func sourceIP(r *http.Request) string {
	// Behind the front proxy the client address is the first entry of
	// X-Forwarded-For.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "UNKNOWN"
	}
	return host
}

func userAgent(r *http.Request) string {
	if ua := r.Header.Get("User-Agent"); ua != "" {
		return ua
	}
	return "UNKNOWN"
}

type ctxKey struct{}

func WithActor(ctx context.Context, actor ActorContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, actor)
}

func ActorFrom(ctx context.Context) (ActorContext, bool) {
	actor, ok := ctx.Value(ctxKey{}).(ActorContext)
	return actor, ok
}
