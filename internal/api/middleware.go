package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tendervault/tendervault/internal/audit"
	"github.com/tendervault/tendervault/internal/identity"
	"github.com/tendervault/tendervault/pkg/httpx"
)

type requestIDKey struct{}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), requestIDKey{}, httpx.NewRequestID())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestIDOf(r *http.Request) string {
	if id, ok := r.Context().Value(requestIDKey{}).(string); ok {
		return id
	}
	return "unknown"
}

// authenticate verifies the bearer token and installs the ActorContext. A
// rejected token is audited and answered 401 without ever reaching a
// handler; missing roles are the handlers' business, not this middleware's.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.verifier.VerifyBearer(r.Header.Get("Authorization"))
		if err != nil {
			anon := identity.FromClaims("", nil, "", r)
			s.sink.Write(r.Context(), audit.Event{
				Action:    audit.ActionAuthVerify,
				IPAddress: anon.IP,
				UserAgent: anon.UserAgent,
				Result:    audit.ResultDenied,
				Metadata:  map[string]string{"reason": "Invalid or missing token"},
			})
			httpx.WriteError(w, requestIDOf(r), httpx.E(http.StatusUnauthorized, "AUTH_UNAUTHORIZED", "A valid access token is required"))
			return
		}
		actor := identity.FromClaims(claims.Subject, claims.Groups, claims.Email, r)
		next.ServeHTTP(w, r.WithContext(identity.WithActor(r.Context(), actor)))
	})
}

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tendervault_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"handler", "method", "status"},
	)
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tendervault_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"handler", "method"},
	)
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Metrics records per-route counters and latency, labeled by the chi route
// pattern rather than the raw path so tender ids do not explode cardinality.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(pattern, r.Method, strconv.Itoa(rec.status)).Inc()
		httpRequestDuration.WithLabelValues(pattern, r.Method).Observe(time.Since(start).Seconds())
	})
}
