package tabby

import (
	"context"
	"time"
)

// Limiter is a token bucket spreading requests over a window. Self-hosted
// Tabby instances usually run on a single GPU; hammering them just queues
// work server-side.
type Limiter struct {
	interval time.Duration
	tokens   chan struct{}
	done     chan struct{}
}

// NewLimiter allows limit requests per window. The bucket starts full and
// refills one token per window/limit.
func NewLimiter(limit int, window time.Duration) *Limiter {
	l := &Limiter{
		interval: window / time.Duration(limit),
		tokens:   make(chan struct{}, limit),
		done:     make(chan struct{}),
	}
	for i := 0; i < limit; i++ {
		l.tokens <- struct{}{}
	}

	go l.refill()
	return l
}

// Wait blocks until a token is available, the context is canceled, or the
// limiter is stopped.
func (l *Limiter) Wait(ctx context.Context) error {
	select {
	case <-l.tokens:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return context.Canceled
	}
}

// Stop terminates the refill goroutine and releases all waiters.
func (l *Limiter) Stop() {
	close(l.done)
}

func (l *Limiter) refill() {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			select {
			case l.tokens <- struct{}{}:
			default:
				// Bucket full, skip.
			}
		case <-l.done:
			return
		}
	}
}
