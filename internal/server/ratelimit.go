package server

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"

	"poll-terminal/internal/router"
)

const (
	defaultRateLimitPerMinute = 30
	defaultRateLimitBurst     = 10
)

type ipBucket struct {
	tokens float64
	last   time.Time
}

// tokenBuckets tracks one token bucket per remote IP.
type tokenBuckets struct {
	mu        sync.Mutex
	perSecond float64
	burst     float64
	buckets   map[string]ipBucket
}

func newTokenBuckets(limitPerMinute, burst int) *tokenBuckets {
	if limitPerMinute <= 0 {
		limitPerMinute = defaultRateLimitPerMinute
	}
	if burst <= 0 {
		burst = defaultRateLimitBurst
	}
	return &tokenBuckets{
		perSecond: float64(limitPerMinute) / 60.0,
		burst:     float64(burst),
		buckets:   make(map[string]ipBucket),
	}
}

func (b *tokenBuckets) allow(ip string, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	bucket := b.buckets[ip]
	if bucket.last.IsZero() {
		bucket = ipBucket{tokens: b.burst, last: now}
	}

	elapsed := now.Sub(bucket.last).Seconds()
	if elapsed > 0 {
		bucket.tokens = min(bucket.tokens+elapsed*b.perSecond, b.burst)
		bucket.last = now
	}

	if bucket.tokens < 1 {
		b.buckets[ip] = bucket
		return false
	}

	bucket.tokens--
	b.buckets[ip] = bucket
	return true
}

// RateLimitMiddleware enforces per-IP connection limits using a token bucket.
func RateLimitMiddleware(limitPerMinute, burst int, logger *log.Logger) wish.Middleware {
	if logger == nil {
		logger = log.Default()
	}
	buckets := newTokenBuckets(limitPerMinute, burst)

	return func(next ssh.Handler) ssh.Handler {
		return func(s ssh.Session) {
			now := time.Now().UTC()
			ip := router.RemoteIP(s)
			if !buckets.allow(ip, now) {
				logger.Warn("connection throttled", "event", "rate_limit_throttled", "remote_ip", ip)
				wish.Println(s, "rate limit exceeded")
				return
			}
			next(s)
		}
	}
}
