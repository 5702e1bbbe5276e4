package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/wardenbot/warden/internal/db"
	dberrors "github.com/wardenbot/warden/internal/errors"
)

const (
	minThreshold = 1
	maxThreshold = 20
)

type policyRow struct {
	ChatID           int64 `db:"chat_id"`
	StickerThreshold int   `db:"sticker_threshold"`
	StickerWindow    int64 `db:"sticker_window"`
	TextThreshold    int   `db:"text_threshold"`
	TextWindow       int64 `db:"text_window"`
	PhotoThreshold   int   `db:"photo_threshold"`
	PhotoWindow      int64 `db:"photo_window"`
	VideoThreshold   int   `db:"video_threshold"`
	VideoWindow      int64 `db:"video_window"`
	WarnEnabled      bool  `db:"warn_enabled"`
	UpdatedAt        int64 `db:"updated_at"`
}

func (r *policyRow) toPolicy() *db.ChatPolicy {
	return &db.ChatPolicy{
		ChatID:      r.ChatID,
		Sticker:     db.CategoryPolicy{Threshold: r.StickerThreshold, Window: time.Duration(r.StickerWindow) * time.Second},
		Text:        db.CategoryPolicy{Threshold: r.TextThreshold, Window: time.Duration(r.TextWindow) * time.Second},
		Photo:       db.CategoryPolicy{Threshold: r.PhotoThreshold, Window: time.Duration(r.PhotoWindow) * time.Second},
		Video:       db.CategoryPolicy{Threshold: r.VideoThreshold, Window: time.Duration(r.VideoWindow) * time.Second},
		WarnEnabled: r.WarnEnabled,
	}
}

// GetPolicy never fails for unknown chats, those get the process defaults.
func (c *sqliteClient) GetPolicy(ctx context.Context, chatID int64) (*db.ChatPolicy, error) {
	var row policyRow
	err := c.db.GetContext(ctx, &row, `SELECT * FROM chat_policies WHERE chat_id = ?`, chatID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			policy := *c.defaults
			policy.ChatID = chatID
			return &policy, nil
		}
		return nil, err
	}
	return row.toPolicy(), nil
}

// SetPolicy validates and persists one field of a chat policy. The row is
// created lazily from the current defaults on first customization.
func (c *sqliteClient) SetPolicy(ctx context.Context, chatID int64, category db.Category, field db.PolicyField, value int) error {
	switch field {
	case db.PolicyFieldThreshold:
		if value < minThreshold || value > maxThreshold {
			return fmt.Errorf("%w: threshold %d outside [%d,%d]", dberrors.ErrValidation, value, minThreshold, maxThreshold)
		}
	case db.PolicyFieldWindow:
		if value <= 0 {
			return fmt.Errorf("%w: window %d must be positive", dberrors.ErrValidation, value)
		}
	case db.PolicyFieldWarn:
		if value != 0 && value != 1 {
			return fmt.Errorf("%w: warn must be 0 or 1", dberrors.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown field %q", dberrors.ErrValidation, field)
	}

	unlock := c.locks.Lock(policyKey(chatID))
	defer unlock()

	policy, err := c.GetPolicy(ctx, chatID)
	if err != nil {
		return err
	}
	switch field {
	case db.PolicyFieldThreshold:
		policy.SetCategoryThreshold(category, value)
	case db.PolicyFieldWindow:
		policy.SetCategoryWindow(category, time.Duration(value)*time.Second)
	case db.PolicyFieldWarn:
		policy.WarnEnabled = value == 1
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO chat_policies (chat_id, sticker_threshold, sticker_window, text_threshold, text_window,
			photo_threshold, photo_window, video_threshold, video_window, warn_enabled, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
		sticker_threshold = excluded.sticker_threshold,
		sticker_window = excluded.sticker_window,
		text_threshold = excluded.text_threshold,
		text_window = excluded.text_window,
		photo_threshold = excluded.photo_threshold,
		photo_window = excluded.photo_window,
		video_threshold = excluded.video_threshold,
		video_window = excluded.video_window,
		warn_enabled = excluded.warn_enabled,
		updated_at = excluded.updated_at
	`,
		chatID,
		policy.Sticker.Threshold, int64(policy.Sticker.Window/time.Second),
		policy.Text.Threshold, int64(policy.Text.Window/time.Second),
		policy.Photo.Threshold, int64(policy.Photo.Window/time.Second),
		policy.Video.Threshold, int64(policy.Video.Window/time.Second),
		policy.WarnEnabled,
		c.now().UnixNano(),
	)
	return err
}

func policyKey(chatID int64) string {
	return fmt.Sprintf("policy:%d", chatID)
}
