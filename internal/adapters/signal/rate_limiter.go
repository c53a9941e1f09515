package signal

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterIdle is how long a key may go unused before its bucket is pruned.
const limiterIdle = 10 * time.Minute

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// CallRateLimiter throttles call requests per client token.
type CallRateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*limiterEntry
	limit   rate.Limit
	burst   int
	now     func() time.Time
	pruned  time.Time
}

// NewCallRateLimiter returns a limiter allowing perSecond requests with
// the given burst. perSecond <= 0 disables limiting.
func NewCallRateLimiter(perSecond float64, burst int) *CallRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &CallRateLimiter{
		buckets: make(map[string]*limiterEntry),
		limit:   rate.Limit(perSecond),
		burst:   burst,
		now:     time.Now,
	}
}

func (rl *CallRateLimiter) Allow(key string) bool {
	if rl == nil || rl.limit <= 0 {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.prune(now)

	e, ok := rl.buckets[key]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = e
	}
	e.lastSeen = now
	return e.lim.AllowN(now, 1)
}

func (rl *CallRateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

func (rl *CallRateLimiter) prune(now time.Time) {
	if now.Sub(rl.pruned) < limiterIdle {
		return
	}
	rl.pruned = now
	for key, e := range rl.buckets {
		if now.Sub(e.lastSeen) >= limiterIdle {
			delete(rl.buckets, key)
		}
	}
}
