package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"github.com/wardenbot/warden/internal/bot"
	"github.com/wardenbot/warden/internal/db"
	dberrors "github.com/wardenbot/warden/internal/errors"
	"github.com/wardenbot/warden/internal/i18n"
	"github.com/wardenbot/warden/internal/moderation"
	"github.com/wardenbot/warden/internal/observability"
)

// Flood watches group messages for bursts of repeated content and applies
// the engine's verdicts: warnings, deletions and escalating mutes.
type Flood struct {
	s bot.Service
}

// EnforcementResult reports how much of a Restrict verdict could actually be
// applied against the platform. The violation record is authoritative either
// way.
type EnforcementResult struct {
	MessageDeleted bool
	UserRestricted bool
	Error          string
}

func NewFlood(s bot.Service) *Flood {
	return &Flood{s: s}
}

func (f *Flood) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	if u.Message == nil || chat == nil || user == nil {
		return true, nil
	}
	if !chat.IsGroup() && !chat.IsSuperGroup() {
		return true, nil
	}
	msg := u.Message
	if user.IsBot || msg.IsCommand() {
		return true, nil
	}

	category, fingerprint, ok := classify(msg)
	if !ok {
		return true, nil
	}

	// Platform admins are never evaluated, exemption is decided before the
	// engine ever sees the event.
	isAdmin, err := bot.IsChatAdmin(f.s.GetBot(), chat.ID, user.ID)
	if err != nil {
		f.getLogEntry().WithError(err).Warn("cant resolve admin status, treating as regular member")
	}
	if isAdmin {
		return true, nil
	}

	observability.Logger.Debug("evaluating content event",
		zap.Int64("chat_id", chat.ID),
		zap.Int64("user_id", user.ID),
		zap.String("category", category.String()),
	)

	verdict, err := f.s.GetEngine().Evaluate(ctx, chat.ID, user.ID, category, fingerprint)
	if err != nil {
		// Fail-open verdict: the message passes, the degradation is logged.
		f.getLogEntry().WithError(err).Error("evaluation degraded")
		return true, nil
	}

	lang := f.s.GetLanguage()
	switch verdict.Outcome {
	case moderation.OutcomeWarn:
		f.sendWarning(chat.ID, msg, user, verdict, lang)
		return false, nil
	case moderation.OutcomeRestrict:
		result := f.enforce(ctx, chat, msg, user, verdict, lang)
		if result.Error != "" {
			f.getLogEntry().WithField("result", result).Warn("restriction recorded but not fully enforced")
		}
		return false, nil
	case moderation.OutcomeAlreadyRestricted:
		if err := bot.DeleteChatMessage(ctx, f.s.GetBot(), chat.ID, msg.MessageID); err != nil {
			f.getLogEntry().WithError(err).Error("failed to delete message from restricted user")
		}
		return false, nil
	}
	return true, nil
}

func (f *Flood) sendWarning(chatID int64, msg *api.Message, user *api.User, verdict moderation.Verdict, lang string) {
	text := fmt.Sprintf(
		i18n.Get("%s, please slow down: %d of %d repeated messages. One more and you will be muted.", lang),
		bot.GetUN(user), verdict.Count, verdict.Threshold,
	)
	reply := api.NewMessage(chatID, text)
	reply.ReplyParameters = api.ReplyParameters{
		ChatID:                   chatID,
		MessageID:                msg.MessageID,
		AllowSendingWithoutReply: true,
	}
	reply.DisableNotification = true
	if _, err := f.s.GetBot().Send(reply); err != nil {
		f.getLogEntry().WithError(err).Error("failed to send warning")
	}
}

func (f *Flood) enforce(ctx context.Context, chat *api.Chat, msg *api.Message, user *api.User, verdict moderation.Verdict, lang string) *EnforcementResult {
	result := &EnforcementResult{}

	if err := bot.DeleteChatMessage(ctx, f.s.GetBot(), chat.ID, msg.MessageID); err != nil {
		f.getLogEntry().WithError(err).WithField("chat_title", chat.Title).Error("failed to delete message")
	} else {
		result.MessageDeleted = true
	}

	until := time.Now().Add(verdict.Duration)
	var notice string
	if err := bot.RestrictSending(ctx, f.s.GetBot(), chat.ID, user.ID, until); err != nil {
		if errors.Is(err, dberrors.ErrNoPrivileges) {
			result.Error = "restrict rights required"
		} else {
			result.Error = err.Error()
		}
		notice = fmt.Sprintf(
			i18n.Get("Violation #%d recorded for %s, but I need restrict rights to enforce it", lang),
			verdict.Ordinal, bot.GetUN(user),
		)
	} else {
		result.UserRestricted = true
		notice = fmt.Sprintf(
			i18n.Get("%s muted for %d minutes (violation #%d)", lang),
			bot.GetUN(user), int(verdict.Duration/time.Minute), verdict.Ordinal,
		)
	}

	reply := api.NewMessage(chat.ID, notice)
	reply.DisableNotification = true
	if _, err := f.s.GetBot().Send(reply); err != nil {
		f.getLogEntry().WithError(err).Error("failed to send restriction notice")
	}
	return result
}

// classify buckets a message into a rate-limited category. Stickers and
// animations count without a fingerprint, any sticker in the window matches.
// Text, photos and videos must repeat identical content to count.
func classify(msg *api.Message) (db.Category, string, bool) {
	switch {
	case msg.Sticker != nil:
		return db.CategorySticker, "", true
	case msg.Animation != nil:
		return db.CategoryAnimation, "", true
	case len(msg.Photo) > 0:
		return db.CategoryPhoto, msg.Photo[len(msg.Photo)-1].FileUniqueID, true
	case msg.Video != nil:
		return db.CategoryVideo, msg.Video.FileUniqueID, true
	case msg.Text != "":
		return db.CategoryText, textFingerprint(msg.Text), true
	}
	return "", "", false
}

func textFingerprint(text string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(text))))
	return hex.EncodeToString(sum[:])
}

func (f *Flood) getLogEntry() *log.Entry {
	return log.WithField("object", "Flood")
}
