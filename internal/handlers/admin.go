package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/wardenbot/warden/internal/bot"
	"github.com/wardenbot/warden/internal/db"
	dberrors "github.com/wardenbot/warden/internal/errors"
	"github.com/wardenbot/warden/internal/i18n"
)

// Admin exposes the moderation controls as chat commands. Every command is
// gated on the caller being the chat creator or a restricting administrator.
type Admin struct {
	s bot.Service
}

func NewAdmin(s bot.Service) *Admin {
	return &Admin{s: s}
}

func (a *Admin) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	if chat == nil || user == nil {
		return true, nil
	}

	switch {
	case
		u.Message == nil,
		user.IsBot,
		!u.Message.IsCommand():
		return true, nil
	}
	m := u.Message

	isAdmin, err := bot.IsChatAdmin(a.s.GetBot(), chat.ID, user.ID)
	if err != nil {
		return true, err
	}

	entry := a.getLogEntry()
	entry.Trace("command:", m.Command())
	lang := a.s.GetLanguage()

	switch m.Command() {
	case "pardon":
		if !isAdmin {
			break
		}
		return a.withTarget(ctx, chat, m, lang, func(targetID int64) string {
			pardoned, err := a.s.GetEngine().Pardon(ctx, chat.ID, targetID)
			if err != nil {
				entry.WithError(err).Error("cant pardon")
				return ""
			}
			if !pardoned {
				return i18n.Get("Nothing to pardon", lang)
			}
			return i18n.Get("User pardoned, history cleared", lang)
		})

	case "unban":
		if !isAdmin {
			break
		}
		return a.withTarget(ctx, chat, m, lang, func(targetID int64) string {
			lifted, err := a.s.GetEngine().LiftRestriction(ctx, chat.ID, targetID)
			if err != nil {
				entry.WithError(err).Error("cant lift restriction")
				return ""
			}
			if !lifted {
				return i18n.Get("No active restriction", lang)
			}
			if err := bot.UnrestrictSending(ctx, a.s.GetBot(), chat.ID, targetID); err != nil {
				entry.WithError(err).Error("cant unrestrict member")
			}
			return i18n.Get("Restriction lifted", lang)
		})

	case "exempt":
		if !isAdmin {
			break
		}
		return a.withTarget(ctx, chat, m, lang, func(targetID int64) string {
			if err := a.s.GetEngine().GrantExemption(ctx, chat.ID, targetID, user.ID); err != nil {
				entry.WithError(err).Error("cant grant exemption")
				return ""
			}
			return i18n.Get("User is now exempt from spam checks", lang)
		})

	case "unexempt":
		if !isAdmin {
			break
		}
		return a.withTarget(ctx, chat, m, lang, func(targetID int64) string {
			revoked, err := a.s.GetEngine().RevokeExemption(ctx, chat.ID, targetID)
			if err != nil {
				entry.WithError(err).Error("cant revoke exemption")
				return ""
			}
			if !revoked {
				return i18n.Get("No exemption found", lang)
			}
			return i18n.Get("Exemption revoked", lang)
		})

	case "spamstatus":
		return a.withTarget(ctx, chat, m, lang, func(targetID int64) string {
			status, err := a.s.GetEngine().GetStatus(ctx, chat.ID, targetID)
			if err != nil {
				entry.WithError(err).Error("cant get status")
				return ""
			}
			parts := []string{fmt.Sprintf(i18n.Get("violations: %d", lang), status.ViolationCount)}
			if status.Restricted {
				parts = append(parts, fmt.Sprintf(i18n.Get("restricted for %d more minutes", lang), int(status.Remaining/time.Minute)+1))
			} else {
				parts = append(parts, i18n.Get("not restricted", lang))
			}
			if status.Exempt {
				parts = append(parts, i18n.Get("exempt from checks", lang))
			}
			return strings.Join(parts, ", ")
		})

	case "topspammers":
		offenders, err := a.s.GetEngine().TopOffenders(ctx, chat.ID, 10)
		if err != nil {
			entry.WithError(err).Error("cant get top offenders")
			return false, nil
		}
		if len(offenders) == 0 {
			a.reply(chat.ID, m, i18n.Get("No offenders yet", lang))
			return false, nil
		}
		lines := []string{i18n.Get("Top offenders", lang) + ":"}
		for i, offender := range offenders {
			lines = append(lines, fmt.Sprintf("%d. id%d - %d", i+1, offender.UserID, offender.Count))
		}
		a.reply(chat.ID, m, strings.Join(lines, "\n"))
		return false, nil

	case "limits":
		policy, err := a.s.GetEngine().GetPolicy(ctx, chat.ID)
		if err != nil {
			entry.WithError(err).Error("cant get policy")
			return false, nil
		}
		a.reply(chat.ID, m, renderPolicy(policy, lang))
		return false, nil

	case "setlimit":
		if !isAdmin {
			break
		}
		args := strings.Fields(m.CommandArguments())
		if len(args) != 3 {
			a.reply(chat.ID, m, i18n.Get("Usage: /setlimit <category> <threshold|window|warn> <value>", lang))
			return false, nil
		}
		category, ok := db.ParseCategory(args[0])
		if !ok {
			a.reply(chat.ID, m, i18n.Get("Invalid value", lang))
			return false, nil
		}
		value, err := strconv.Atoi(args[2])
		if err != nil {
			a.reply(chat.ID, m, i18n.Get("Invalid value", lang))
			return false, nil
		}
		err = a.s.GetEngine().SetPolicy(ctx, chat.ID, category, db.PolicyField(args[1]), value)
		if err != nil {
			if errors.Is(err, dberrors.ErrValidation) {
				a.reply(chat.ID, m, i18n.Get("Invalid value", lang))
				return false, nil
			}
			entry.WithError(err).Error("cant set policy")
			return false, nil
		}
		a.reply(chat.ID, m, i18n.Get("Limit updated", lang))
		return false, nil

	case "banstats":
		days := 7
		if arg := strings.TrimSpace(m.CommandArguments()); arg != "" {
			if parsed, err := strconv.Atoi(arg); err == nil && parsed > 0 {
				days = parsed
			}
		}
		stats, err := a.s.GetEngine().BanStats(ctx, chat.ID, days)
		if err != nil {
			entry.WithError(err).Error("cant get ban stats")
			return false, nil
		}
		a.reply(chat.ID, m, renderBanStats(stats, lang))
		return false, nil

	default:
		entry.Trace("unknown command")
		return true, nil
	}
	return true, nil
}

// withTarget resolves the command target from the replied-to message or a
// numeric argument, then sends back whatever the action reports.
func (a *Admin) withTarget(ctx context.Context, chat *api.Chat, m *api.Message, lang string, action func(targetID int64) string) (bool, error) {
	_ = ctx
	var targetID int64
	if m.ReplyToMessage != nil && m.ReplyToMessage.From != nil {
		targetID = m.ReplyToMessage.From.ID
	} else if arg := strings.TrimSpace(m.CommandArguments()); arg != "" {
		parsed, err := strconv.ParseInt(arg, 10, 64)
		if err == nil {
			targetID = parsed
		}
	}
	if targetID == 0 {
		a.reply(chat.ID, m, i18n.Get("Reply to a message or pass a user id", lang))
		return false, nil
	}
	if text := action(targetID); text != "" {
		a.reply(chat.ID, m, text)
	}
	return false, nil
}

func (a *Admin) reply(chatID int64, m *api.Message, text string) {
	msg := api.NewMessage(chatID, text)
	msg.ReplyParameters = api.ReplyParameters{
		ChatID:                   chatID,
		MessageID:                m.MessageID,
		AllowSendingWithoutReply: true,
	}
	msg.DisableNotification = true
	if _, err := a.s.GetBot().Send(msg); err != nil {
		a.getLogEntry().WithError(err).Error("failed to send reply")
	}
}

func renderPolicy(policy *db.ChatPolicy, lang string) string {
	lines := []string{i18n.Get("Current limits", lang) + ":"}
	slots := []struct {
		name string
		slot db.CategoryPolicy
	}{
		{"sticker/animation", policy.Sticker},
		{"text", policy.Text},
		{"photo", policy.Photo},
		{"video", policy.Video},
	}
	for _, s := range slots {
		lines = append(lines, fmt.Sprintf("%s: %d / %ds", s.name, s.slot.Threshold, int(s.slot.Window/time.Second)))
	}
	lines = append(lines, fmt.Sprintf("warn: %v", policy.WarnEnabled))
	return strings.Join(lines, "\n")
}

func renderBanStats(stats *db.BanStats, lang string) string {
	lines := []string{fmt.Sprintf(i18n.Get("Ban stats for the last %d days", lang)+":", stats.PeriodDays)}
	lines = append(lines, fmt.Sprintf("total: %d (%d min)", stats.TotalBans, stats.TotalMinutes))
	for category, count := range stats.ByCategory {
		lines = append(lines, fmt.Sprintf("%s: %d", category, count))
	}
	for i, offender := range stats.TopViolators {
		lines = append(lines, fmt.Sprintf("%d. id%d - %d", i+1, offender.UserID, offender.Count))
	}
	return strings.Join(lines, "\n")
}

func (a *Admin) getLogEntry() *log.Entry {
	return log.WithField("context", "admin")
}
