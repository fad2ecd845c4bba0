package broker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicy_Delay(t *testing.T) {
	p := RetryPolicy{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2}

	assert.Equal(t, 100*time.Millisecond, p.Delay(1))
	assert.Equal(t, 200*time.Millisecond, p.Delay(2))
	assert.Equal(t, 400*time.Millisecond, p.Delay(3))
	assert.Equal(t, time.Second, p.Delay(10))
	assert.Equal(t, 100*time.Millisecond, p.Delay(0))
}

func TestRetryPolicy_DelayJitterStaysBounded(t *testing.T) {
	p := RetryPolicy{InitialDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond, Multiplier: 2, Jitter: 0.5}

	for range 50 {
		d := p.Delay(2)
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.LessOrEqual(t, d, 300*time.Millisecond)
	}
}

func TestRetryPolicy_NoDelayConfigured(t *testing.T) {
	assert.Zero(t, RetryPolicy{}.Delay(3))
}

func TestRetryPolicy_Exhausted(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3}

	assert.False(t, p.exhausted(2))
	assert.True(t, p.exhausted(3))
	assert.False(t, RetryPolicy{}.exhausted(100), "zero retries forever")
}
