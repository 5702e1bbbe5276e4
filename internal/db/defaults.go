package db

import (
	"time"

	"github.com/wardenbot/warden/internal/config"
)

const (
	defaultThreshold     = 3
	defaultStickerWindow = 30 * time.Second
	defaultTextWindow    = 20 * time.Second
	defaultPhotoWindow   = 30 * time.Second
	defaultVideoWindow   = 30 * time.Second
)

// DefaultChatPolicy is the policy applied to chats with no stored overrides.
func DefaultChatPolicy(chatID int64) *ChatPolicy {
	return &ChatPolicy{
		ChatID:      chatID,
		Sticker:     CategoryPolicy{Threshold: defaultThreshold, Window: defaultStickerWindow},
		Text:        CategoryPolicy{Threshold: defaultThreshold, Window: defaultTextWindow},
		Photo:       CategoryPolicy{Threshold: defaultThreshold, Window: defaultPhotoWindow},
		Video:       CategoryPolicy{Threshold: defaultThreshold, Window: defaultVideoWindow},
		WarnEnabled: true,
	}
}

// PolicyFromFlood builds the process-wide default policy from configuration.
func PolicyFromFlood(flood config.Flood) *ChatPolicy {
	return &ChatPolicy{
		Sticker:     CategoryPolicy{Threshold: flood.StickerThreshold, Window: flood.StickerWindow},
		Text:        CategoryPolicy{Threshold: flood.TextThreshold, Window: flood.TextWindow},
		Photo:       CategoryPolicy{Threshold: flood.PhotoThreshold, Window: flood.PhotoWindow},
		Video:       CategoryPolicy{Threshold: flood.VideoThreshold, Window: flood.VideoWindow},
		WarnEnabled: flood.WarnEnabled,
	}
}
