// Package reconnect is the client side retry policy for live connections:
// exponential backoff with full jitter and a bounded number of attempts.
package reconnect

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/benbjohnson/clock"
)

var ErrExhausted = errors.New("reconnect attempts exhausted")

type Policy struct {
	Base   time.Duration
	Max    time.Duration
	Factor float64
	// MaxAttempts of zero retries forever.
	MaxAttempts int
	// Jitter returns a value in [0, 1). Defaults to math/rand.
	Jitter func() float64
	Clock  clock.Clock
}

func Default() Policy {
	return Policy{
		Base:        3 * time.Second,
		Max:         time.Minute,
		Factor:      2,
		MaxAttempts: 10,
	}
}

// Ceiling is the un-jittered delay before the given attempt, counted from 1.
func (p Policy) Ceiling(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	factor := p.Factor
	if factor < 1 {
		factor = 1
	}
	d := float64(p.Base) * math.Pow(factor, float64(attempt-1))
	if p.Max > 0 && d > float64(p.Max) {
		return p.Max
	}
	return time.Duration(d)
}

// Delay picks the wait before the given attempt. ok is false once the
// attempts are used up.
func (p Policy) Delay(attempt int) (d time.Duration, ok bool) {
	if p.MaxAttempts > 0 && attempt > p.MaxAttempts {
		return 0, false
	}
	jitter := p.Jitter
	if jitter == nil {
		jitter = rand.Float64
	}
	return time.Duration(jitter() * float64(p.Ceiling(attempt))), true
}

// Wait blocks for the delay of the given attempt.
func (p Policy) Wait(ctx context.Context, attempt int) error {
	d, ok := p.Delay(attempt)
	if !ok {
		return ErrExhausted
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	timer := clk.Timer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
