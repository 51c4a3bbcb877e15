package backoff

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConstantPolicyExhausts(t *testing.T) {
	t.Parallel()

	policy := NewConstantPolicy(10*time.Millisecond, 2)

	interval, err := policy.ComputeNextInterval(0)
	require.NoError(t, err)
	require.Equal(t, 10*time.Millisecond, interval)

	interval, err = policy.ComputeNextInterval(1)
	require.NoError(t, err)
	require.Equal(t, 10*time.Millisecond, interval)

	_, err = policy.ComputeNextInterval(2)
	require.ErrorIs(t, err, ErrRetriesExhausted)
}

func TestConstantPolicyZeroRetries(t *testing.T) {
	t.Parallel()

	policy := NewConstantPolicy(time.Second, 0)
	_, err := policy.ComputeNextInterval(0)
	require.ErrorIs(t, err, ErrRetriesExhausted)
}

func TestExponentialPolicyGrowsAndCaps(t *testing.T) {
	t.Parallel()

	policy := NewExponentialPolicy(100*time.Millisecond, 100)

	first, err := policy.ComputeNextInterval(0)
	require.NoError(t, err)
	require.Equal(t, 100*time.Millisecond, first)

	second, err := policy.ComputeNextInterval(1)
	require.NoError(t, err)
	require.Equal(t, 200*time.Millisecond, second)

	capped, err := policy.ComputeNextInterval(20)
	require.NoError(t, err)
	require.Equal(t, 10*time.Second, capped)
}

func TestRetrierWaitsInterval(t *testing.T) {
	t.Parallel()

	retrier := NewRetrier(NewConstantPolicy(20*time.Millisecond, 3))

	start := time.Now()
	require.NoError(t, retrier.Next(context.Background()))
	require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	require.Equal(t, 1, retrier.Attempts())
}

func TestRetrierHonorsCancellation(t *testing.T) {
	t.Parallel()

	retrier := NewRetrier(NewConstantPolicy(time.Minute, 3))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := retrier.Next(ctx)
	require.ErrorIs(t, err, ErrOperationCanceled)
}

func TestRetrierZeroIntervalDoesNotSleep(t *testing.T) {
	t.Parallel()

	retrier := NewRetrier(NewConstantPolicy(0, 1))

	start := time.Now()
	require.NoError(t, retrier.Next(context.Background()))
	require.Less(t, time.Since(start), 10*time.Millisecond)
}
