package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type ipLimiter struct {
	limiter *rate.Limiter
	mu      sync.Mutex
	last    time.Time
}

func (l *ipLimiter) touch(now time.Time) {
	l.mu.Lock()
	l.last = now
	l.mu.Unlock()
}

func (l *ipLimiter) idleSince(cutoff time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last.Before(cutoff)
}

// RateLimiter throttles requests per client IP
type RateLimiter struct {
	rps      rate.Limit
	burst    int
	idleTTL  time.Duration
	limiters sync.Map // map[string]*ipLimiter
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewRateLimiter creates a limiter allowing rps requests per second with the
// given burst for each client IP
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		idleTTL: 10 * time.Minute,
		stopCh:  make(chan struct{}),
	}
}

// Start runs the background cleanup of idle limiters
func (l *RateLimiter) Start() {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.cleanup(time.Now())
			case <-l.stopCh:
				return
			}
		}
	}()
}

// Stop stops the cleanup loop
func (l *RateLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
	l.wg.Wait()
}

func (l *RateLimiter) cleanup(now time.Time) {
	cutoff := now.Add(-l.idleTTL)
	l.limiters.Range(func(key, val any) bool {
		if val.(*ipLimiter).idleSince(cutoff) {
			l.limiters.Delete(key)
		}
		return true
	})
}

func (l *RateLimiter) limiterFor(ip string) *ipLimiter {
	if v, ok := l.limiters.Load(ip); ok {
		return v.(*ipLimiter)
	}
	v, _ := l.limiters.LoadOrStore(ip, &ipLimiter{limiter: rate.NewLimiter(l.rps, l.burst)})
	return v.(*ipLimiter)
}

// Handler rejects requests over the per-IP budget with 429
func (l *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lim := l.limiterFor(clientIP(r))
		lim.touch(time.Now())
		if !lim.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
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
