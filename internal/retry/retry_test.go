package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/flowcraft/corerun/internal/domain"
)

func TestFixedDelayAndShouldRetry(t *testing.T) {
	f := Fixed{DelayMs: 250}
	assert.Equal(t, 250*time.Millisecond, f.Delay(1))
	assert.Equal(t, 250*time.Millisecond, f.Delay(5))
	assert.True(t, f.ShouldRetry(3, 3))
	assert.False(t, f.ShouldRetry(4, 3))
}

func TestExponentialDelayGrowsAndCaps(t *testing.T) {
	e := Exponential{BaseMs: 100, MaxMs: 1000}
	assert.Equal(t, 100*time.Millisecond, e.Delay(1))
	assert.Equal(t, 200*time.Millisecond, e.Delay(2))
	assert.Equal(t, 400*time.Millisecond, e.Delay(3))
	assert.Equal(t, 800*time.Millisecond, e.Delay(4))
	assert.Equal(t, 1000*time.Millisecond, e.Delay(5))
}

func TestNoRetryAlwaysStops(t *testing.T) {
	n := NoRetry{}
	assert.False(t, n.ShouldRetry(1, 10))
	assert.Equal(t, time.Duration(0), n.Delay(1))
}

func TestFromNodeSelectsPolicy(t *testing.T) {
	_, ok := FromNode(false, domain.RetryDelay{}).(NoRetry)
	assert.True(t, ok)

	fixed := FromNode(true, domain.RetryDelay{FixedMs: 50})
	_, ok = fixed.(Fixed)
	assert.True(t, ok)

	exp := FromNode(true, domain.RetryDelay{Exponential: &domain.ExponentialDelay{BaseMs: 10, MaxMs: 100}})
	_, ok = exp.(Exponential)
	assert.True(t, ok)
}
