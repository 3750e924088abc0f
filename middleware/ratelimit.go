package middleware

import (
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/tsellem/authgate"
)

// KeyFunc derives the rate-limit client key from a request. An empty return
// falls back to the remote IP.
type KeyFunc func(r *http.Request) string

// RateLimit wraps next with the Engine's edge request ceiling. Every response
// carries X-RateLimit-Limit and X-RateLimit-Remaining; a denied request gets
// 429 with Retry-After. When the limiter backend is unreachable the request
// is admitted: availability of the protected endpoint wins over precision of
// the ceiling, and the outage is already on the engine's audit trail.
func RateLimit(engine *authgate.Engine, keyFn KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			ctx := authgate.WithClientIP(r.Context(), ip)
			if ua := r.UserAgent(); ua != "" {
				ctx = authgate.WithUserAgent(ctx, ua)
			}
			r = r.WithContext(ctx)

			key := ""
			if keyFn != nil {
				key = keyFn(r)
			}
			if key == "" {
				key = ip
			}

			decision, err := engine.Admit(ctx, key)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, authgate.ErrRateLimited):
				w.Header().Set("Retry-After", "60")
				http.Error(w, authgate.UserMessage(err), http.StatusTooManyRequests)
			default:
				// Limiter backend down: fail open.
				next.ServeHTTP(w, r)
			}
		})
	}
}

// SecurityHeaders sets the baseline response headers every auth endpoint
// should carry.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
