package backoff

import (
	"context"
	"errors"
	"math"
	"time"
)

var (
	// ErrRetriesExhausted is returned when the maximum number of retries has
	// been reached.
	ErrRetriesExhausted = errors.New("retries exhausted")
	// ErrOperationCanceled is returned when the retry operation is canceled
	// via context.
	ErrOperationCanceled = errors.New("operation canceled")
)

// Policy computes the interval to wait before the next retry, or an error if
// no more retries should be attempted.
type Policy interface {
	ComputeNextInterval(retryCount int) (time.Duration, error)
}

// ConstantPolicy waits a fixed interval between retries. This is the policy
// step retries use: retry_delay_ms between attempts, up to retry_count
// retries.
type ConstantPolicy struct {
	Interval   time.Duration
	MaxRetries int
}

// NewConstantPolicy creates a ConstantPolicy with the given interval and
// retry cap.
func NewConstantPolicy(interval time.Duration, maxRetries int) *ConstantPolicy {
	return &ConstantPolicy{Interval: interval, MaxRetries: maxRetries}
}

// ComputeNextInterval returns the constant interval until retries run out.
func (p *ConstantPolicy) ComputeNextInterval(retryCount int) (time.Duration, error) {
	if retryCount >= p.MaxRetries {
		return 0, ErrRetriesExhausted
	}
	return p.Interval, nil
}

// ExponentialPolicy doubles (by Factor) the interval after each retry, capped
// at MaxInterval.
type ExponentialPolicy struct {
	InitialInterval time.Duration
	Factor          float64
	MaxInterval     time.Duration
	MaxRetries      int
}

// NewExponentialPolicy creates an ExponentialPolicy with conventional
// defaults for factor and cap.
func NewExponentialPolicy(initialInterval time.Duration, maxRetries int) *ExponentialPolicy {
	return &ExponentialPolicy{
		InitialInterval: initialInterval,
		Factor:          2.0,
		MaxInterval:     10 * time.Second,
		MaxRetries:      maxRetries,
	}
}

// ComputeNextInterval computes the next retry interval using exponential
// backoff.
func (p *ExponentialPolicy) ComputeNextInterval(retryCount int) (time.Duration, error) {
	if retryCount >= p.MaxRetries {
		return 0, ErrRetriesExhausted
	}

	interval := float64(p.InitialInterval) * math.Pow(p.Factor, float64(retryCount))
	if interval > float64(p.MaxInterval) {
		interval = float64(p.MaxInterval)
	}
	return time.Duration(interval), nil
}

// Retrier tracks retry state for one operation.
type Retrier struct {
	policy     Policy
	retryCount int
}

// NewRetrier creates a Retrier driven by the given policy.
func NewRetrier(policy Policy) *Retrier {
	return &Retrier{policy: policy}
}

// Next blocks until the next retry interval has passed or the context is
// canceled. It returns ErrRetriesExhausted when the policy allows no further
// attempts.
func (r *Retrier) Next(ctx context.Context) error {
	interval, err := r.policy.ComputeNextInterval(r.retryCount)
	if err != nil {
		return err
	}
	r.retryCount++

	if interval <= 0 {
		if ctx.Err() != nil {
			return ErrOperationCanceled
		}
		return nil
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ErrOperationCanceled
	}
}

// Attempts reports how many retries have been consumed.
func (r *Retrier) Attempts() int {
	return r.retryCount
}
