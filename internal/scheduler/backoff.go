package scheduler

import "time"

const (
	maxBackoffDelay  = 5000 * time.Millisecond // hard ceiling of the exponential schedule
	maxAdaptiveDelay = 1000 * time.Millisecond
	throttlePenalty  = 50 * time.Millisecond
	successDecay     = 10 * time.Millisecond
)

type Phase string

const (
	PhaseHealthy  Phase = "healthy"  // no errors, no penalty
	PhaseDegraded Phase = "degraded" // no errors, penalty still decaying
	PhaseBackoff  Phase = "backoff"  // consecutive throttling, exponential delay
)

// Adaptive state of one scheduler; transitions on every task outcome
type backoffState struct {
	consecutiveErrors int
	adaptiveDelay     time.Duration
}

func (b backoffState) Phase() Phase {
	switch {
	case b.consecutiveErrors > 0:
		return PhaseBackoff
	case b.adaptiveDelay > 0:
		return PhaseDegraded
	default:
		return PhaseHealthy
	}
}

func (b *backoffState) onSuccess() {
	b.consecutiveErrors = 0
	b.adaptiveDelay -= successDecay
	if b.adaptiveDelay < 0 {
		b.adaptiveDelay = 0
	}
}

func (b *backoffState) onThrottle() {
	b.consecutiveErrors++
	b.adaptiveDelay += throttlePenalty
	if b.adaptiveDelay > maxAdaptiveDelay {
		b.adaptiveDelay = maxAdaptiveDelay
	}
}

// Non-throttling failure relaxes the backoff by one step and leaves the penalty alone
func (b *backoffState) onFailure() {
	if b.consecutiveErrors > 0 {
		b.consecutiveErrors--
	}
}

// Delay before the next batch
func (b backoffState) delay(base time.Duration, adaptive bool) time.Duration {
	if !adaptive {
		return base
	}

	if b.consecutiveErrors > 0 {
		d := base
		for i := 0; i < b.consecutiveErrors && d < maxBackoffDelay; i++ {
			d *= 2
		}
		if d > maxBackoffDelay {
			d = maxBackoffDelay
		}
		return d
	}

	return base + b.adaptiveDelay
}
