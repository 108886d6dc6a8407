// Package retry implements RetryPolicy: a decision object answering
// should-retry? and how-long-to-wait? for one node's failed attempt.
package retry

import (
	"math"
	"time"

	"github.com/flowcraft/corerun/internal/domain"
)

// Policy is implemented by Fixed and Exponential.
type Policy interface {
	Delay(attempt int) time.Duration
	ShouldRetry(attempt, maxRetries int) bool
}

// Fixed returns a constant delay on every attempt.
type Fixed struct {
	DelayMs int64
}

func (f Fixed) Delay(attempt int) time.Duration {
	return time.Duration(f.DelayMs) * time.Millisecond
}

func (f Fixed) ShouldRetry(attempt, maxRetries int) bool {
	return attempt <= maxRetries
}

// Exponential returns min(base*2^(attempt-1), max).
type Exponential struct {
	BaseMs int64
	MaxMs  int64
}

func (e Exponential) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	multiplier := math.Pow(2, float64(attempt-1))
	ms := float64(e.BaseMs) * multiplier
	if e.MaxMs > 0 && ms > float64(e.MaxMs) {
		ms = float64(e.MaxMs)
	}
	return time.Duration(ms) * time.Millisecond
}

func (e Exponential) ShouldRetry(attempt, maxRetries int) bool {
	return attempt <= maxRetries
}

// NoRetry never retries, regardless of maxRetries — selected whenever a
// node's RetryOnFail flag is false.
type NoRetry struct{}

func (NoRetry) Delay(attempt int) time.Duration { return 0 }

func (NoRetry) ShouldRetry(attempt, maxRetries int) bool { return false }

// FromNode selects the retry Policy implied by a node's capability
// flags: retryOnFail=false short-circuits to NoRetry; otherwise the
// shape of RetryDelay picks Fixed or Exponential.
func FromNode(retryOnFail bool, delay domain.RetryDelay) Policy {
	if !retryOnFail {
		return NoRetry{}
	}
	if delay.IsExponential() {
		return Exponential{BaseMs: delay.Exponential.BaseMs, MaxMs: delay.Exponential.MaxMs}
	}
	return Fixed{DelayMs: delay.FixedMs}
}
