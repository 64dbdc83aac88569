package reconnect

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
)

func TestCeiling_GrowsAndCaps(t *testing.T) {
	p := Default()

	require.Equal(t, 3*time.Second, p.Ceiling(1))
	require.Equal(t, 6*time.Second, p.Ceiling(2))
	require.Equal(t, 12*time.Second, p.Ceiling(3))
	require.Equal(t, time.Minute, p.Ceiling(10))
}

func TestDelay_FullJitter(t *testing.T) {
	p := Default()
	p.Jitter = func() float64 { return 0.5 }

	d, ok := p.Delay(2)

	require.True(t, ok)
	require.Equal(t, 3*time.Second, d)
}

func TestDelay_StaysWithinCeiling(t *testing.T) {
	p := Default()
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		d, ok := p.Delay(attempt)
		require.True(t, ok)
		require.GreaterOrEqual(t, d, time.Duration(0))
		require.LessOrEqual(t, d, p.Ceiling(attempt))
	}
}

func TestDelay_Exhausted(t *testing.T) {
	p := Default()
	p.MaxAttempts = 2

	_, ok := p.Delay(3)

	require.False(t, ok)
	require.ErrorIs(t, p.Wait(context.Background(), 3), ErrExhausted)
}

func TestWait_UsesClock(t *testing.T) {
	clk := clock.NewMock()
	p := Default()
	p.Clock = clk
	p.Jitter = func() float64 { return 1 }

	done := make(chan error, 1)
	go func() { done <- p.Wait(context.Background(), 1) }()

	require.Eventually(t, func() bool {
		clk.Add(time.Second)
		select {
		case err := <-done:
			require.NoError(t, err)
			return true
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWait_Cancelled(t *testing.T) {
	p := Default()
	p.Clock = clock.NewMock()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, p.Wait(ctx, 1), context.Canceled)
}
