package bot

import (
	"context"
	"strconv"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"

	dberrors "github.com/wardenbot/warden/internal/errors"
)

const msgNoPrivileges = "not enough rights to restrict/unrestrict chat member"

// restrictedPermissions keeps plain text available while the user serves a
// restriction, everything else is shut off.
var restrictedPermissions = api.ChatPermissions{
	CanSendMessages: true,
}

var fullPermissions = api.ChatPermissions{
	CanSendMessages:       true,
	CanSendAudios:         true,
	CanSendDocuments:      true,
	CanSendPhotos:         true,
	CanSendVideos:         true,
	CanSendVideoNotes:     true,
	CanSendVoiceNotes:     true,
	CanSendPolls:          true,
	CanSendOtherMessages:  true,
	CanAddWebPagePreviews: true,
}

func DeleteChatMessage(ctx context.Context, bot *api.BotAPI, chatID int64, messageID int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		if _, err := bot.Request(api.NewDeleteMessage(chatID, messageID)); err != nil {
			return err
		}
		return nil
	}
}

// RestrictSending limits the user to text messages until the given time.
func RestrictSending(ctx context.Context, bot *api.BotAPI, chatID, userID int64, until time.Time) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		perms := restrictedPermissions
		if _, err := bot.Request(api.RestrictChatMemberConfig{
			ChatMemberConfig: api.ChatMemberConfig{
				ChatConfig: api.ChatConfig{ChatID: chatID},
				UserID:     userID,
			},
			Permissions: &perms,
			UntilDate:   until.Unix(),

			UseIndependentChatPermissions: true,
		}); err != nil {
			return withPrivilegeError(err, "restrict")
		}
		return nil
	}
}

// UnrestrictSending returns the user to the full permission set.
func UnrestrictSending(ctx context.Context, bot *api.BotAPI, chatID, userID int64) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		perms := fullPermissions
		if _, err := bot.Request(api.RestrictChatMemberConfig{
			ChatMemberConfig: api.ChatMemberConfig{
				ChatConfig: api.ChatConfig{ChatID: chatID},
				UserID:     userID,
			},
			Permissions: &perms,
			UntilDate:   0,

			UseIndependentChatPermissions: true,
		}); err != nil {
			return withPrivilegeError(err, "unrestrict")
		}
		return nil
	}
}

// IsChatAdmin reports whether the user may moderate the chat: the creator or
// an administrator who can restrict members.
func IsChatAdmin(bot *api.BotAPI, chatID, userID int64) (bool, error) {
	chatMember, err := bot.GetChatMember(api.GetChatMemberConfig{
		ChatConfigWithUser: api.ChatConfigWithUser{
			UserID: userID,
			ChatConfig: api.ChatConfig{
				ChatID: chatID,
			},
		},
	})
	if err != nil {
		return false, errors.WithMessage(err, "cant get chat member")
	}
	switch {
	case
		chatMember.IsCreator(),
		chatMember.IsAdministrator() && chatMember.CanRestrictMembers:
		return true, nil
	}
	return false, nil
}

// GetUN returns the best printable handle for a user.
func GetUN(user *api.User) string {
	if user == nil {
		return ""
	}
	if user.UserName != "" {
		return "@" + user.UserName
	}
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if name != "" {
		return name
	}
	return "id" + strconv.FormatInt(user.ID, 10)
}

func withPrivilegeError(err error, operation string) error {
	if strings.Contains(err.Error(), msgNoPrivileges) {
		return dberrors.ErrNoPrivileges
	}
	return errors.WithMessagef(err, "failed to %s user", operation)
}
