package moderation

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/wardenbot/warden/internal/db"
	dberrors "github.com/wardenbot/warden/internal/errors"
	"github.com/wardenbot/warden/internal/observability"
)

type activityStore interface {
	RecordAndCount(ctx context.Context, chatID, userID int64, category db.Category, window time.Duration, fingerprint string) (int, error)
	ClearActivity(ctx context.Context, chatID, userID int64) error
}

type violationStore interface {
	GetViolation(ctx context.Context, chatID, userID int64) (*db.ViolationRecord, error)
	Escalate(ctx context.Context, chatID, userID int64, durationFor func(ordinal int) time.Duration) (int, time.Duration, error)
	LiftRestriction(ctx context.Context, chatID, userID int64) (bool, error)
	Pardon(ctx context.Context, chatID, userID int64) (bool, error)
	TopOffenders(ctx context.Context, chatID int64, limit int) ([]db.Offender, error)
}

type exemptionStore interface {
	IsExempt(ctx context.Context, chatID, userID int64) (bool, error)
	GrantExemption(ctx context.Context, chatID, userID, grantedBy int64) error
	RevokeExemption(ctx context.Context, chatID, userID int64) (bool, error)
}

type policyStore interface {
	GetPolicy(ctx context.Context, chatID int64) (*db.ChatPolicy, error)
	SetPolicy(ctx context.Context, chatID int64, category db.Category, field db.PolicyField, value int) error
}

type statsStore interface {
	RecordBanEvent(ctx context.Context, event *db.BanEvent) error
	GetBanStats(ctx context.Context, chatID int64, days int) (*db.BanStats, error)
}

// Store is everything the engine needs from the durable layer.
type Store interface {
	activityStore
	violationStore
	exemptionStore
	policyStore
	statsStore
}

// Engine turns one inbound content event into a verdict, chaining the
// exemption registry, the chat policy, the activity ledger and the violation
// tracker. It is safe for concurrent use.
type Engine struct {
	store      Store
	escalation EscalationPolicy
	now        func() time.Time
	logger     *log.Entry
}

func NewEngine(store Store, escalation EscalationPolicy) *Engine {
	return &Engine{
		store:      store,
		escalation: escalation,
		now:        time.Now,
		logger:     log.WithField("object", "Engine"),
	}
}

// Evaluate records the event and decides what should happen to it.
//
// Storage faults fail open: moderation must never take the message pipeline
// down, so the verdict degrades to Allow while the error is still returned
// for the caller to log.
func (e *Engine) Evaluate(ctx context.Context, chatID, userID int64, category db.Category, fingerprint string) (Verdict, error) {
	ctx, span := otel.Tracer("moderation").Start(ctx, "evaluate")
	defer span.End()

	done := observability.StartEvaluation()
	defer done("completed")

	verdict := Verdict{Outcome: OutcomeAllow, Category: category}

	exempt, err := e.store.IsExempt(ctx, chatID, userID)
	if err != nil {
		return e.failOpen(category, "check exemption", err)
	}
	if exempt {
		// Exempt users leave no activity trail at all.
		observability.RecordVerdict(category.String(), string(OutcomeAllow))
		return verdict, nil
	}

	policy, err := e.store.GetPolicy(ctx, chatID)
	if err != nil {
		return e.failOpen(category, "load policy", err)
	}
	slot := policy.CategoryPolicy(category)

	if !category.UsesFingerprint() {
		fingerprint = ""
	}
	count, err := e.store.RecordAndCount(ctx, chatID, userID, category, slot.Window, fingerprint)
	if err != nil {
		return e.failOpen(category, "record activity", err)
	}
	verdict.Count = count
	verdict.Threshold = slot.Threshold

	if count >= slot.Threshold {
		record, err := e.store.GetViolation(ctx, chatID, userID)
		if err != nil {
			return e.failOpen(category, "load violation", err)
		}
		if record != nil && record.RestrictedUntil != nil && record.RestrictedUntil.After(e.now()) {
			// Still serving a restriction: the content goes, the record
			// stays put. Escalating here would double-punish one burst.
			verdict.Outcome = OutcomeAlreadyRestricted
			verdict.Ordinal = record.Count
			observability.RecordVerdict(category.String(), string(OutcomeAlreadyRestricted))
			return verdict, nil
		}

		ordinal, duration, err := e.store.Escalate(ctx, chatID, userID, e.escalation.DurationFor)
		if err != nil {
			return e.failOpen(category, "escalate", err)
		}
		verdict.Outcome = OutcomeRestrict
		verdict.Ordinal = ordinal
		verdict.Duration = duration

		if err := e.store.RecordBanEvent(ctx, &db.BanEvent{
			ChatID:   chatID,
			UserID:   userID,
			Category: category,
			Ordinal:  ordinal,
			Minutes:  int(duration / time.Minute),
			Reason:   fmt.Sprintf("repeated %s flood", category),
		}); err != nil {
			e.logger.WithError(err).Warn("failed to record ban event")
		}

		observability.RecordVerdict(category.String(), string(OutcomeRestrict))
		return verdict, nil
	}

	if policy.WarnEnabled && count == slot.Threshold-1 {
		verdict.Outcome = OutcomeWarn
		observability.RecordVerdict(category.String(), string(OutcomeWarn))
		return verdict, nil
	}

	observability.RecordVerdict(category.String(), string(OutcomeAllow))
	return verdict, nil
}

func (e *Engine) failOpen(category db.Category, operation string, err error) (Verdict, error) {
	e.logger.WithError(err).WithField("operation", operation).Error("store degraded, failing open")
	observability.RecordVerdict(category.String(), "degraded")
	return Verdict{Outcome: OutcomeAllow, Category: category, Degraded: true},
		fmt.Errorf("%w: %s: %v", dberrors.ErrStoreUnavailable, operation, err)
}

// GetStatus reports the moderation state of a user. Reads are total: unknown
// users come back clean rather than as errors.
func (e *Engine) GetStatus(ctx context.Context, chatID, userID int64) (*Status, error) {
	status := &Status{}

	exempt, err := e.store.IsExempt(ctx, chatID, userID)
	if err != nil {
		return nil, fmt.Errorf("check exemption: %w", err)
	}
	status.Exempt = exempt

	record, err := e.store.GetViolation(ctx, chatID, userID)
	if err != nil {
		return nil, fmt.Errorf("load violation: %w", err)
	}
	if record == nil {
		return status, nil
	}
	status.ViolationCount = record.Count
	if record.RestrictedUntil != nil {
		if remaining := record.RestrictedUntil.Sub(e.now()); remaining > 0 {
			status.Restricted = true
			status.Remaining = remaining
		}
	}
	return status, nil
}

// IsRestricted is computed against the clock at call time, expiry needs no
// explicit transition.
func (e *Engine) IsRestricted(ctx context.Context, chatID, userID int64) (bool, error) {
	record, err := e.store.GetViolation(ctx, chatID, userID)
	if err != nil {
		return false, err
	}
	return record != nil && record.RestrictedUntil != nil && record.RestrictedUntil.After(e.now()), nil
}

// Pardon wipes the violation record and the user's activity trail.
func (e *Engine) Pardon(ctx context.Context, chatID, userID int64) (bool, error) {
	pardoned, err := e.store.Pardon(ctx, chatID, userID)
	if err != nil {
		return false, err
	}
	if !pardoned {
		return false, nil
	}
	if err := e.store.ClearActivity(ctx, chatID, userID); err != nil {
		e.logger.WithError(err).Warn("failed to clear activity on pardon")
	}
	return true, nil
}

// LiftRestriction clears the expiry but keeps the violation count.
func (e *Engine) LiftRestriction(ctx context.Context, chatID, userID int64) (bool, error) {
	return e.store.LiftRestriction(ctx, chatID, userID)
}

func (e *Engine) GrantExemption(ctx context.Context, chatID, userID, grantedBy int64) error {
	return e.store.GrantExemption(ctx, chatID, userID, grantedBy)
}

func (e *Engine) RevokeExemption(ctx context.Context, chatID, userID int64) (bool, error) {
	return e.store.RevokeExemption(ctx, chatID, userID)
}

func (e *Engine) TopOffenders(ctx context.Context, chatID int64, limit int) ([]db.Offender, error) {
	return e.store.TopOffenders(ctx, chatID, limit)
}

func (e *Engine) GetPolicy(ctx context.Context, chatID int64) (*db.ChatPolicy, error) {
	return e.store.GetPolicy(ctx, chatID)
}

func (e *Engine) SetPolicy(ctx context.Context, chatID int64, category db.Category, field db.PolicyField, value int) error {
	return e.store.SetPolicy(ctx, chatID, category, field, value)
}

func (e *Engine) BanStats(ctx context.Context, chatID int64, days int) (*db.BanStats, error) {
	return e.store.GetBanStats(ctx, chatID, days)
}
