package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrInitialFetch wraps a failure of the first page fetch.
	ErrInitialFetch = errors.New("initial fetch failed")
	// ErrRetriesExhausted is returned when bounded retry gives up on a page.
	ErrRetriesExhausted = errors.New("page fetch retries exhausted")
	// ErrCircuitOpen is returned while the page fetch breaker is open.
	ErrCircuitOpen = errors.New("page fetch circuit open")
)

// RetryMode selects how failed page fetches are retried.
type RetryMode string

const (
	// RetryBounded caps attempts and backs off exponentially.
	RetryBounded RetryMode = "bounded"
	// RetryUnbounded retries immediately until success or cancellation.
	RetryUnbounded RetryMode = "unbounded"
)

// RetryPolicy configures page fetch retries.
type RetryPolicy struct {
	Mode           RetryMode
	MaxAttempts    int // total attempts per page, bounded mode only
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64

	// BreakerThreshold consecutive failures open the breaker for BreakerCooldown.
	// Zero disables the breaker.
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// DefaultRetryPolicy returns the bounded policy used when nothing is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Mode:             RetryBounded,
		MaxAttempts:      5,
		InitialBackoff:   500 * time.Millisecond,
		MaxBackoff:       30 * time.Second,
		Multiplier:       2,
		BreakerThreshold: 20,
		BreakerCooldown:  time.Minute,
	}
}

// backoff returns the wait before attempt n+1 after n failed attempts.
func (p RetryPolicy) backoff(n int) time.Duration {
	if p.Mode == RetryUnbounded || p.InitialBackoff <= 0 {
		return 0
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(p.InitialBackoff)
	for i := 1; i < n; i++ {
		d *= mult
		if p.MaxBackoff > 0 && d >= float64(p.MaxBackoff) {
			return p.MaxBackoff
		}
	}
	return time.Duration(d)
}

// exhausted reports whether no attempt may follow n failed attempts.
func (p RetryPolicy) exhausted(n int) bool {
	return p.Mode != RetryUnbounded && p.MaxAttempts > 0 && n >= p.MaxAttempts
}

// breaker counts consecutive page fetch failures across runs of one driver.
type breaker struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	failures  int
	openUntil time.Time
	now       func() time.Time
}

func newBreaker(threshold int, cooldown time.Duration) *breaker {
	return &breaker{threshold: threshold, cooldown: cooldown, now: time.Now}
}

// allow fails fast while the breaker is open. After the cooldown one attempt
// is let through; its outcome closes or reopens the breaker.
func (b *breaker) allow() error {
	if b == nil || b.threshold <= 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.now().Before(b.openUntil) {
		return fmt.Errorf("%w until %s", ErrCircuitOpen, b.openUntil.Format(time.RFC3339))
	}
	return nil
}

func (b *breaker) success() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.openUntil = time.Time{}
}

func (b *breaker) failure() {
	if b == nil || b.threshold <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	if b.failures >= b.threshold {
		b.openUntil = b.now().Add(b.cooldown)
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
