package fetcher

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitSettings configures an optional token-bucket cap on top of the
// inter-request delay.
type RateLimitSettings struct {
	Requests int
	Window   time.Duration
}

// Limiter enforces the crawl delay for one fetcher instance. The budget is
// global to the instance, not per URL: every outbound request passes
// through Wait regardless of destination path.
type Limiter struct {
	delay  time.Duration
	bucket *rate.Limiter

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu   sync.Mutex
	last time.Time
}

// NewLimiter creates a limiter spacing requests at least delay apart, with
// an optional requests-per-window cap.
func NewLimiter(delay time.Duration, rl RateLimitSettings) *Limiter {
	l := &Limiter{
		delay: delay,
		now:   time.Now,
		sleep: sleepContext,
	}
	if rl.Requests > 0 && rl.Window > 0 {
		interval := rl.Window / time.Duration(rl.Requests)
		if interval <= 0 {
			interval = time.Millisecond
		}
		l.bucket = rate.NewLimiter(rate.Every(interval), rl.Requests)
	}
	return l
}

// Wait blocks until at least the configured delay has elapsed since the
// previous request, then records the new request time.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}

	var pause time.Duration
	l.mu.Lock()
	if l.delay > 0 && !l.last.IsZero() {
		if rest := l.last.Add(l.delay).Sub(l.now()); rest > 0 {
			pause = rest
		}
	}
	l.mu.Unlock()

	if pause > 0 {
		if err := l.sleep(ctx, pause); err != nil {
			return err
		}
	}

	if l.bucket != nil {
		if err := l.bucket.Wait(ctx); err != nil {
			return err
		}
	}

	l.mu.Lock()
	l.last = l.now()
	l.mu.Unlock()
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
