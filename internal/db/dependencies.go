package db

import (
	"context"
	"time"
)

// PolicyField addresses one mutable field of a chat policy.
type PolicyField string

const (
	PolicyFieldThreshold PolicyField = "threshold"
	PolicyFieldWindow    PolicyField = "window"
	PolicyFieldWarn      PolicyField = "warn"
)

type Client interface {
	Close() error

	// Activity ledger.
	RecordAndCount(ctx context.Context, chatID, userID int64, category Category, window time.Duration, fingerprint string) (int, error)
	PruneActivity(ctx context.Context, retention time.Duration) (int64, error)
	ClearActivity(ctx context.Context, chatID, userID int64) error

	// Violation tracker.
	GetViolation(ctx context.Context, chatID, userID int64) (*ViolationRecord, error)
	Escalate(ctx context.Context, chatID, userID int64, durationFor func(ordinal int) time.Duration) (int, time.Duration, error)
	LiftRestriction(ctx context.Context, chatID, userID int64) (bool, error)
	Pardon(ctx context.Context, chatID, userID int64) (bool, error)
	TopOffenders(ctx context.Context, chatID int64, limit int) ([]Offender, error)

	// Exemption registry.
	IsExempt(ctx context.Context, chatID, userID int64) (bool, error)
	GrantExemption(ctx context.Context, chatID, userID, grantedBy int64) error
	RevokeExemption(ctx context.Context, chatID, userID int64) (bool, error)

	// Chat policy store.
	GetPolicy(ctx context.Context, chatID int64) (*ChatPolicy, error)
	SetPolicy(ctx context.Context, chatID int64, category Category, field PolicyField, value int) error

	// Ban statistics.
	RecordBanEvent(ctx context.Context, event *BanEvent) error
	GetBanStats(ctx context.Context, chatID int64, days int) (*BanStats, error)
}
