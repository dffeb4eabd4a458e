package server

import (
	"crypto/subtle"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/lobby/internal/lobby"
	"github.com/woozymasta/lobby/internal/metrics"
	"github.com/woozymasta/lobby/internal/models"
	"golang.org/x/time/rate"
)

// GetRealIP attempts to determine the client's real IP address, trusting
// headers like CF-Connecting-IP or X-Forwarded-For if configured to do so.
func GetRealIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if cf := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); cf != "" {
			return cf
		}
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			return strings.TrimSpace(parts[0])
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return ip
}

// ResolveCaller returns the caller address in canonical form together with its IP version.
func ResolveCaller(r *http.Request, trustProxy bool) lobby.Caller {
	ip, version := models.ClassifyIP(GetRealIP(r, trustProxy))
	return lobby.Caller{IP: ip, Version: version}
}

// RateLimitMiddleware applies a token bucket rate limit per client IP address.
// It rejects requests with "429 Too Many Requests" if the limit is exceeded.
// Every wrapped route shares one limiter per IP.
func (s *Server) RateLimitMiddleware(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := GetRealIP(r, s.trustProxy)
		if !s.limiter.allow(ip) {
			metrics.RateLimitedTotal.Inc()
			log.Debug().Str("ip", ip).Str("path", r.URL.Path).Msg("Rate limited")
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type ipClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter holds the per IP token buckets.
type ipLimiter struct {
	clients map[string]*ipClient
	limit   rate.Limit
	burst   int
	mu      sync.Mutex
}

// newIPLimiter returns a limiter allowing count requests per window, or nil when count is not positive.
func newIPLimiter(count int, window time.Duration) *ipLimiter {
	if count <= 0 || window <= 0 {
		return nil
	}

	return &ipLimiter{
		clients: make(map[string]*ipClient),
		limit:   rate.Limit(float64(count) / window.Seconds()),
		burst:   count,
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	cli, found := l.clients[ip]
	if !found {
		cli = &ipClient{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = cli
	}
	cli.lastSeen = time.Now()
	limiter := cli.limiter
	l.mu.Unlock()

	return limiter.Allow()
}

// gc drops clients idle for 10 minutes, every 5 minutes, until shutdown is closed.
func (l *ipLimiter) gc(shutdown <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-shutdown:
			return
		case <-ticker.C:
			l.prune(time.Now().Add(-10 * time.Minute))
		}
	}
}

func (l *ipLimiter) prune(cutoff time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for ip, c := range l.clients {
		if c.lastSeen.Before(cutoff) {
			delete(l.clients, ip)
		}
	}
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs each HTTP request and records its latency by route pattern.
func (s *Server) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		metrics.RequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())

		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("ip", GetRealIP(r, s.trustProxy)).
			Int("status", rec.status).
			Dur("duration", elapsed).
			Msg("Request handled")
	})
}

// AdminAuthMiddleware protects endpoints by requiring a valid Bearer token in the Authorization header.
// The header is compared in constant time.
func AdminAuthMiddleware(token string, next http.Handler) http.Handler {
	want := []byte("Bearer " + token)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if subtle.ConstantTimeCompare([]byte(r.Header.Get("Authorization")), want) != 1 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
