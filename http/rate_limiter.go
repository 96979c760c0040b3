package http

import (
	"net"
	"net/http"
	"sync"
	"time"
)

const sweepInterval = 5 * time.Minute

// tokenBucket refills continuously; tokens never exceed the limiter burst.
type tokenBucket struct {
	tokens float64
	seen   time.Time
}

// RateLimiter throttles scoring requests per client address. Each client may
// spend burst requests at once and regains them evenly over the refill window.
type RateLimiter struct {
	mu      sync.Mutex
	burst   float64
	perSec  float64
	window  time.Duration
	buckets map[string]*tokenBucket
	now     func() time.Time
	reject  func(client string)

	done     chan struct{}
	doneOnce sync.Once
}

// NewRateLimiter allows burst requests per client, refilled over window.
func NewRateLimiter(burst int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		burst:   float64(burst),
		window:  window,
		buckets: make(map[string]*tokenBucket),
		now:     time.Now,
		done:    make(chan struct{}),
	}
	if window > 0 {
		rl.perSec = float64(burst) / window.Seconds()
	}
	go rl.sweepLoop()
	return rl
}

// OnReject registers fn to run for every refused request. Call it before the
// limiter serves traffic.
func (rl *RateLimiter) OnReject(fn func(client string)) {
	rl.mu.Lock()
	rl.reject = fn
	rl.mu.Unlock()
}

// Admit decides whether r may proceed. When refused it also reports how long
// the client has to wait for its next token.
func (rl *RateLimiter) Admit(r *http.Request) (client string, ok bool, wait time.Duration) {
	client = clientAddr(r)
	ok, wait = rl.Allow(client)
	if !ok {
		rl.mu.Lock()
		fn := rl.reject
		rl.mu.Unlock()
		if fn != nil {
			fn(client)
		}
	}
	return client, ok, wait
}

// Allow spends one token of client.
func (rl *RateLimiter) Allow(client string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[client]
	if !ok {
		b = &tokenBucket{tokens: rl.burst, seen: now}
		rl.buckets[client] = b
	}
	b.tokens = rl.refilled(b, now)
	b.seen = now

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	if rl.perSec == 0 {
		return false, rl.window
	}
	wait := time.Duration((1 - b.tokens) / rl.perSec * float64(time.Second))
	return false, wait.Round(time.Millisecond)
}

func (rl *RateLimiter) refilled(b *tokenBucket, now time.Time) float64 {
	tokens := b.tokens + now.Sub(b.seen).Seconds()*rl.perSec
	if tokens > rl.burst {
		tokens = rl.burst
	}
	return tokens
}

func (rl *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.done:
			return
		}
	}
}

// sweep forgets clients whose bucket has refilled completely; a fresh bucket
// is indistinguishable from theirs.
func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for client, b := range rl.buckets {
		if rl.refilled(b, now) >= rl.burst {
			delete(rl.buckets, client)
		}
	}
}

func (rl *RateLimiter) Stop() {
	rl.doneOnce.Do(func() { close(rl.done) })
}

func (rl *RateLimiter) clientCount() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// clientAddr identifies the caller. chi's RealIP middleware leaves a bare IP
// in RemoteAddr, otherwise it still carries the port.
func clientAddr(r *http.Request) string {
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	return r.RemoteAddr
}
