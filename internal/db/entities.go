package db

import (
	"time"
)

type (
	// ActivityEvent is one recorded content event. Events are append-only
	// and are deleted only by retention pruning or a pardon.
	ActivityEvent struct {
		ID          int64     `db:"id"`
		ChatID      int64     `db:"chat_id"`
		UserID      int64     `db:"user_id"`
		Category    Category  `db:"category"`
		Fingerprint string    `db:"fingerprint"`
		OccurredAt  time.Time `db:"occurred_at"`
	}

	// ViolationRecord is the escalation state for a user in a chat.
	// RestrictedUntil is nil when the user carries no active restriction.
	ViolationRecord struct {
		ChatID          int64
		UserID          int64
		Count           int
		LastViolationAt time.Time
		RestrictedUntil *time.Time
	}

	Exemption struct {
		ChatID    int64     `db:"chat_id"`
		UserID    int64     `db:"user_id"`
		GrantedBy int64     `db:"granted_by"`
		GrantedAt time.Time `db:"granted_at"`
	}

	// CategoryPolicy is one (threshold, window) slot of a chat policy.
	CategoryPolicy struct {
		Threshold int
		Window    time.Duration
	}

	// ChatPolicy holds the per-category detection limits for a chat.
	// Sticker and animation content share the sticker slot.
	ChatPolicy struct {
		ChatID      int64
		Sticker     CategoryPolicy
		Text        CategoryPolicy
		Photo       CategoryPolicy
		Video       CategoryPolicy
		WarnEnabled bool
	}

	// BanEvent is one applied escalation, kept for chat statistics.
	BanEvent struct {
		ID        int64     `db:"id"`
		ChatID    int64     `db:"chat_id"`
		UserID    int64     `db:"user_id"`
		Category  Category  `db:"category"`
		Ordinal   int       `db:"ordinal"`
		Minutes   int       `db:"minutes"`
		Reason    string    `db:"reason"`
		CreatedAt time.Time `db:"created_at"`
	}

	Offender struct {
		UserID int64 `db:"user_id"`
		Count  int   `db:"count"`
	}

	BanStats struct {
		TotalBans    int
		ByCategory   map[Category]int
		TopViolators []Offender
		TotalMinutes int64
		PeriodDays   int
	}
)

// CategoryPolicy returns the policy slot governing the given category.
func (p *ChatPolicy) CategoryPolicy(category Category) CategoryPolicy {
	switch category {
	case CategorySticker, CategoryAnimation:
		return p.Sticker
	case CategoryText:
		return p.Text
	case CategoryPhoto:
		return p.Photo
	case CategoryVideo:
		return p.Video
	}
	return p.Text
}

func (p *ChatPolicy) SetCategoryThreshold(category Category, threshold int) {
	switch category {
	case CategorySticker, CategoryAnimation:
		p.Sticker.Threshold = threshold
	case CategoryText:
		p.Text.Threshold = threshold
	case CategoryPhoto:
		p.Photo.Threshold = threshold
	case CategoryVideo:
		p.Video.Threshold = threshold
	}
}

func (p *ChatPolicy) SetCategoryWindow(category Category, window time.Duration) {
	switch category {
	case CategorySticker, CategoryAnimation:
		p.Sticker.Window = window
	case CategoryText:
		p.Text.Window = window
	case CategoryPhoto:
		p.Photo.Window = window
	case CategoryVideo:
		p.Video.Window = window
	}
}
