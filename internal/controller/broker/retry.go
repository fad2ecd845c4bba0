package broker

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy spaces redeliveries of transient failures. MaxAttempts 0 retries forever.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// Jitter is the randomization factor, 0.2 spreads each delay over +-20%.
	Jitter float64
}

// Delay is how long the broker holds the delivery back after the given failed attempt.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if p.InitialDelay <= 0 {
		return 0
	}

	maxDelay := max(p.MaxDelay, p.InitialDelay)

	b := &backoff.ExponentialBackOff{
		InitialInterval:     p.InitialDelay,
		RandomizationFactor: min(max(p.Jitter, 0), 1),
		Multiplier:          max(p.Multiplier, 1),
		MaxInterval:         maxDelay,
	}
	b.Reset()

	var d time.Duration
	for i := 0; i < max(attempt, 1); i++ {
		d = b.NextBackOff()
	}

	return min(d, maxDelay)
}

func (p RetryPolicy) exhausted(attempt int) bool {
	return p.MaxAttempts > 0 && attempt >= p.MaxAttempts
}
