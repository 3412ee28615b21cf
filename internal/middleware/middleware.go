package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/RubbishGeo/geo-backend/internal/utils"
)

// KeyFetcher resolves an API key secret from the X-API-Key header to the
// key's registered name. Implementations return an error for unknown or
// revoked keys.
type KeyFetcher interface {
	VerifyKey(ctx context.Context, secret string) (name string, err error)
}

// APIKeyMiddleware guards service-to-service endpoints. The listener is the
// only expected caller, so failures are terse on purpose.
func APIKeyMiddleware(fetcher KeyFetcher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			secret := r.Header.Get("X-API-Key")
			if secret == "" {
				http.Error(w, "Missing API key", http.StatusUnauthorized)
				return
			}

			name, err := fetcher.VerifyKey(r.Context(), secret)
			if err != nil {
				http.Error(w, "Invalid API key", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(utils.WithKeyName(r.Context(), name)))
		})
	}
}

// TokenVerifier checks a client bearer token and returns the caller's UID.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (uid string, err error)
}

// TokenMiddleware guards the client-facing read endpoints. Authenticated but
// unacceptable tokens return 403 rather than 401 so clients can tell a stale
// login apart from a missing one.
func TokenMiddleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				http.Error(w, "Missing Authorization header", http.StatusUnauthorized)
				return
			}
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				http.Error(w, "Authorization header must be a Bearer token", http.StatusUnauthorized)
				return
			}

			uid, err := verifier.VerifyToken(r.Context(), token)
			if err != nil {
				http.Error(w, "Invalid token", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(utils.WithUserID(r.Context(), uid)))
		})
	}
}

var allowed = map[string]struct{}{
	"http://localhost:5173":        {},
	"http://localhost:8080":        {},
	"https://app.rubbish.love":     {},
	"https://app-dev.rubbish.love": {},
}

func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		// Echo the origin back only if it’s on our allow-list
		if _, ok := allowed[origin]; ok {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin") // important for caches
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods",
				"GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers",
				"Content-Type, Authorization, X-API-Key")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientLimiter tracks one token bucket per caller IP. Entries are never
// evicted; the caller population (Cloud Functions egress IPs plus a handful
// of app clients per deployment) is small enough not to matter.
type clientLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

func (c *clientLimiter) get(ip string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limiters[ip]
	if !ok {
		l = rate.NewLimiter(c.rate, c.burst)
		c.limiters[ip] = l
	}
	return l
}

// RateLimitMiddleware applies a per-IP token bucket ahead of the query
// endpoints. KNN scans are expensive enough that a single misbehaving client
// could starve everyone else.
func RateLimitMiddleware(r rate.Limit, burst int) func(http.Handler) http.Handler {
	limiter := &clientLimiter{limiters: map[string]*rate.Limiter{}, rate: r, burst: burst}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ip, _, err := net.SplitHostPort(req.RemoteAddr)
			if err != nil {
				ip = req.RemoteAddr
			}
			if !limiter.get(ip).Allow() {
				http.Error(w, "Too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}
