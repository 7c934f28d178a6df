package utils

import (
	"time"
)

// BackoffStrategy represents a retry backoff strategy
type BackoffStrategy interface {
	// NextDelay returns the delay for the given attempt number (0-indexed)
	NextDelay(attempt int) time.Duration
}

// ConstantBackoff implements a constant backoff strategy
type ConstantBackoff struct {
	Delay time.Duration
}

// NewConstantBackoff creates a new constant backoff strategy
func NewConstantBackoff(delay time.Duration) *ConstantBackoff {
	return &ConstantBackoff{Delay: delay}
}

// NextDelay returns the constant delay
func (cb *ConstantBackoff) NextDelay(attempt int) time.Duration {
	return cb.Delay
}

// LinearBackoff implements a linear backoff strategy
type LinearBackoff struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// NewLinearBackoff creates a new linear backoff strategy
func NewLinearBackoff(baseDelay, maxDelay time.Duration) *LinearBackoff {
	return &LinearBackoff{
		BaseDelay: baseDelay,
		MaxDelay:  maxDelay,
	}
}

// NextDelay returns the linearly increasing delay
func (lb *LinearBackoff) NextDelay(attempt int) time.Duration {
	delay := lb.BaseDelay * time.Duration(attempt+1)
	if delay > lb.MaxDelay {
		return lb.MaxDelay
	}
	return delay
}

// ExponentialBackoff implements an exponential backoff strategy
type ExponentialBackoff struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// NewExponentialBackoff creates a new exponential backoff strategy
func NewExponentialBackoff(baseDelay, maxDelay time.Duration) *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay: baseDelay,
		MaxDelay:  maxDelay,
	}
}

// NextDelay returns the exponentially increasing delay (doubling per attempt)
func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	delay := eb.BaseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay > eb.MaxDelay {
			return eb.MaxDelay
		}
	}
	if delay > eb.MaxDelay {
		return eb.MaxDelay
	}
	return delay
}

// NewBackoff builds a backoff strategy from a name ("constant", "linear" or
// "exponential") and a base delay. Unknown names fall back to constant.
func NewBackoff(name string, base time.Duration) BackoffStrategy {
	const maxDelay = 30 * time.Second
	switch name {
	case "linear":
		return NewLinearBackoff(base, maxDelay)
	case "exponential":
		return NewExponentialBackoff(base, maxDelay)
	default:
		return NewConstantBackoff(base)
	}
}
