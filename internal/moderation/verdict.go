package moderation

import (
	"time"

	"github.com/wardenbot/warden/internal/db"
)

// Outcome is the engine's decision class for one evaluated event.
type Outcome string

const (
	OutcomeAllow Outcome = "allow"
	OutcomeWarn  Outcome = "warn"
	// OutcomeRestrict carries a freshly assigned ordinal and duration.
	OutcomeRestrict Outcome = "restrict"
	// OutcomeAlreadyRestricted means the event crossed the threshold while a
	// restriction is still active: the content should go, but no new
	// escalation was recorded.
	OutcomeAlreadyRestricted Outcome = "already_restricted"
)

type Verdict struct {
	Outcome   Outcome
	Category  db.Category
	Count     int
	Threshold int

	// Set for OutcomeRestrict only.
	Ordinal  int
	Duration time.Duration

	// Degraded marks a fail-open Allow issued because the store was
	// unreachable, not because the event was actually clean.
	Degraded bool
}

// Status is the externally visible moderation state of a user in a chat.
type Status struct {
	ViolationCount int
	Restricted     bool
	Remaining      time.Duration
	Exempt         bool
}
