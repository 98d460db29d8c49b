package pipeline

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttled forwards stage changes immediately and progress updates at
// most once per interval. Chat APIs rate limit message edits, so most
// progress ticks are dropped.
type Throttled struct {
	next    Reporter
	limiter *rate.Limiter

	mu    sync.Mutex
	stage Stage
	last  float64
}

func Throttle(next Reporter, every time.Duration) *Throttled {
	return &Throttled{next: next, limiter: rate.NewLimiter(rate.Every(every), 1), last: -1}
}

func (t *Throttled) Stage(s Stage) {
	t.mu.Lock()
	t.stage = s
	t.last = -1
	t.mu.Unlock()
	t.next.Stage(s)
}

func (t *Throttled) Progress(s Stage, percent float64) {
	percent = math.Floor(percent)
	t.mu.Lock()
	if percent == t.last && s == t.stage {
		t.mu.Unlock()
		return
	}
	if !t.limiter.Allow() {
		t.mu.Unlock()
		return
	}
	t.stage, t.last = s, percent
	t.mu.Unlock()
	t.next.Progress(s, percent)
}
