package guard

import "time"

// RetryPolicy decides how many recovery attempts are made and how long to
// wait after each failure. It is independent of any timer mechanism.
type RetryPolicy struct {
	MaxAttempts int
	Delay       func(attempt int) time.Duration
}

// ExponentialBackoff returns a delay function yielding 2^attempt * base.
func ExponentialBackoff(base time.Duration) func(attempt int) time.Duration {
	return func(attempt int) time.Duration {
		if attempt < 0 {
			attempt = 0
		}
		if attempt > 30 {
			attempt = 30
		}
		return base * time.Duration(1<<uint(attempt))
	}
}

// DefaultRetryPolicy is five attempts with 2, 4, 8, 16 and 32 second waits.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 5, Delay: ExponentialBackoff(time.Second)}
}

// Exhausted reports whether attempt used up the budget.
func (p RetryPolicy) Exhausted(attempt int) bool {
	return attempt >= p.MaxAttempts
}
