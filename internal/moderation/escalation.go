package moderation

import (
	"time"

	"github.com/wardenbot/warden/internal/config"
)

// EscalationPolicy maps a violation ordinal to a restriction duration. It is
// the single source of truth for restriction severity: an ordered table of
// explicit steps and a fallback applied beyond the table.
type EscalationPolicy struct {
	steps    []time.Duration
	fallback time.Duration
}

func NewEscalationPolicy(steps []time.Duration, fallback time.Duration) EscalationPolicy {
	copied := make([]time.Duration, len(steps))
	copy(copied, steps)
	return EscalationPolicy{steps: copied, fallback: fallback}
}

// DefaultEscalationPolicy is the production table: 10m, 1h, 5h, 24h, then 48h
// for every repeat offense past the fourth.
func DefaultEscalationPolicy() EscalationPolicy {
	return NewEscalationPolicy([]time.Duration{
		10 * time.Minute,
		60 * time.Minute,
		300 * time.Minute,
		1440 * time.Minute,
	}, 2880*time.Minute)
}

// EscalationFromFlood builds the ladder from configuration, falling back to
// the production table when the configured one is empty.
func EscalationFromFlood(flood config.Flood) EscalationPolicy {
	if len(flood.EscalationSteps) == 0 || flood.EscalationFallback <= 0 {
		return DefaultEscalationPolicy()
	}
	steps := make([]time.Duration, 0, len(flood.EscalationSteps))
	for _, minutes := range flood.EscalationSteps {
		steps = append(steps, time.Duration(minutes)*time.Minute)
	}
	return NewEscalationPolicy(steps, time.Duration(flood.EscalationFallback)*time.Minute)
}

// DurationFor is total: non-positive ordinals are treated as the first
// offense, ordinals beyond the table get the fallback duration.
func (p EscalationPolicy) DurationFor(ordinal int) time.Duration {
	if ordinal <= 0 {
		ordinal = 1
	}
	if ordinal <= len(p.steps) {
		return p.steps[ordinal-1]
	}
	return p.fallback
}
