package api

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/svitlo/svitlo-bot/internal/api/respond"
)

// TimingMiddleware adds an X-Process-Time header to every response.
func TimingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		tw := &timedWriter{ResponseWriter: w, start: start}
		next.ServeHTTP(tw, r)
		if !tw.wrote {
			tw.stamp()
		}
	})
}

// timedWriter stamps the header just before the status line goes out, since
// headers set after WriteHeader are dropped.
type timedWriter struct {
	http.ResponseWriter
	start time.Time
	wrote bool
}

func (w *timedWriter) stamp() {
	w.wrote = true
	elapsed := time.Since(w.start)
	w.Header().Set("X-Process-Time", fmt.Sprintf("%.2fms", float64(elapsed.Microseconds())/1000.0))
}

func (w *timedWriter) WriteHeader(code int) {
	if !w.wrote {
		w.stamp()
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *timedWriter) Write(b []byte) (int, error) {
	if !w.wrote {
		w.stamp()
	}
	return w.ResponseWriter.Write(b)
}

func (w *timedWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// ipLimiter keeps one token bucket per client IP. Buckets idle for longer
// than the window are dropped on the next sweep.
type ipLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*clientLimiter
	rate      rate.Limit
	burst     int
	window    time.Duration
	lastSweep time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(requestsPerWindow int, window time.Duration) *ipLimiter {
	return &ipLimiter{
		limiters:  make(map[string]*clientLimiter),
		rate:      rate.Limit(float64(requestsPerWindow) / window.Seconds()),
		burst:     max(requestsPerWindow/2, 1),
		window:    window,
		lastSweep: time.Now(),
	}
}

func (l *ipLimiter) allow(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > l.window {
		for k, c := range l.limiters {
			if now.Sub(c.lastSeen) > l.window {
				delete(l.limiters, k)
			}
		}
		l.lastSweep = now
	}

	c, ok := l.limiters[ip]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[ip] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// RateLimitMiddleware rate-limits requests by client IP.
func RateLimitMiddleware(requestsPerWindow int, window time.Duration) func(http.Handler) http.Handler {
	limiter := newIPLimiter(requestsPerWindow, window)
	retryAfter := strconv.Itoa(int(window.Seconds()))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil || ip == "" {
				ip = r.RemoteAddr
			}

			if !limiter.allow(ip, time.Now()) {
				w.Header().Set("Retry-After", retryAfter)
				respond.WriteError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
