package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL   = 10 * time.Minute
	limiterSweepSize = 1024
)

// clientLimiter pairs a client's token bucket with its last activity so idle
// entries can be evicted.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterPool hands out one token bucket per client key. Idle entries are
// swept whenever the map grows past sweepAt, which keeps it bounded by the
// number of recently active clients.
type limiterPool struct {
	mu      sync.Mutex
	rps     rate.Limit
	burst   int
	idleTTL time.Duration
	sweepAt int
	clients map[string]*clientLimiter
}

func newLimiterPool(rps float64, burst int) *limiterPool {
	return &limiterPool{
		rps:     rate.Limit(rps),
		burst:   burst,
		idleTTL: limiterIdleTTL,
		sweepAt: limiterSweepSize,
		clients: make(map[string]*clientLimiter),
	}
}

func (p *limiterPool) allow(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	if len(p.clients) >= p.sweepAt {
		p.sweepLocked(now)
	}

	c, ok := p.clients[key]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(p.rps, p.burst)}
		p.clients[key] = c
	}
	c.lastSeen = now

	return c.limiter.Allow()
}

func (p *limiterPool) sweepLocked(now time.Time) {
	for key, c := range p.clients {
		if now.Sub(c.lastSeen) > p.idleTTL {
			delete(p.clients, key)
		}
	}
}

// RateLimit returns a middleware enforcing a per-client token bucket, keyed
// by client IP. Exhausted clients get 429.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	pool := newLimiterPool(rps, burst)

	return func(c *gin.Context) {
		if !pool.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
