package retry

import "time"

// ExponentialBackoff returns delay based on attempt number.
// The delay doubles with each attempt: base * 2^attempt
func ExponentialBackoff(attempt int, base time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	return base * (1 << attempt)
}

// CappedBackoff is ExponentialBackoff limited to ceiling.
func CappedBackoff(attempt int, base, ceiling time.Duration) time.Duration {
	// Past 30 doublings the shift would overflow for any realistic base.
	if attempt > 30 {
		return ceiling
	}
	return min(ExponentialBackoff(attempt, base), ceiling)
}
