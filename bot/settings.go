package bot

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"

	tg "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Pending-input actions. The settings menu arms one of these per user; the
// user's next plain private message completes the flow.
const (
	inputSetPrefix     = "set_prefix"
	inputSetMaxWarning = "set_max_warning"
)

// settingsModule is the inline-keyboard configuration menu. Flows that need
// free-form input flag the user in the process-local cache and pick up their
// next message.
type settingsModule struct{}

func (m *settingsModule) Name() string { return "settings" }

func (m *settingsModule) Commands() []Command {
	return []Command{
		{
			Name:        "settings",
			Help:        "The settings home page.",
			AdminsOnly:  true,
			PrivateOnly: true,
			Handler:     m.settings,
		},
		{
			Name:    "cancel",
			Help:    "Cancel the current settings operation.",
			Handler: m.cancel,
		},
	}
}

func (m *settingsModule) Callbacks() []Callback {
	return []Callback{
		{Prefix: "settings", Handler: m.menuCallback},
		{Prefix: "set_", Handler: m.armInputCallback},
		{Prefix: "bot_stats", Handler: m.statsCallback},
	}
}

func (m *settingsModule) settings(ctx context.Context, req *Request) error {
	firstName := ""
	if req.Message != nil && req.Message.From != nil {
		firstName = strings.TrimSpace(req.Message.From.FirstName)
	}
	text := fmt.Sprintf(
		"Heya %s!\nFrom here, you can change the settings as you like.\n"+
			"Click on the buttons to see more information.",
		html.EscapeString(firstName),
	)
	params := &tg.SendMessageParams{
		ChatID:      req.ChatID,
		Text:        text,
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: settingsKeyboard(),
	}
	if req.Message != nil {
		params.ReplyParameters = &models.ReplyParameters{MessageID: req.Message.ID}
	}
	_, err := req.API.SendMessage(ctx, params)
	return err
}

func (m *settingsModule) menuCallback(ctx context.Context, req *Request) error {
	if req.Message == nil {
		return nil
	}
	if !req.Bot.isAuthorized(ctx, req.UserID) {
		return nil
	}
	_, err := req.API.EditMessageText(ctx, &tg.EditMessageTextParams{
		ChatID:      req.ChatID,
		MessageID:   req.Message.ID,
		Text:        "Bot configuration:",
		ReplyMarkup: settingsKeyboard(),
	})
	return err
}

// armInputCallback flags the user for a pending input and tells them what to
// send next.
func (m *settingsModule) armInputCallback(ctx context.Context, req *Request) error {
	if req.Query == nil || req.Message == nil {
		return nil
	}
	if !req.Bot.isAuthorized(ctx, req.UserID) {
		return nil
	}

	var prompt string
	switch req.Query.Data {
	case inputSetPrefix:
		prompt = "Send me a character(s) to set as a prefix.\n" +
			"Separate by space if you are sending multiple prefixes.\n" +
			"Example: <code>/ $ &amp; , ?</code>\n" +
			"Send /cancel to cancel the operation."
	case inputSetMaxWarning:
		prompt = "Send me the number of warnings a user can receive before being blocked. (Default: 3)\n" +
			"Send /cancel to cancel the operation."
	default:
		return nil
	}

	if err := req.Bot.setPendingInput(req.UserID, req.Query.Data); err != nil {
		return err
	}
	_, err := req.API.SendMessage(ctx, &tg.SendMessageParams{
		ChatID:    req.ChatID,
		Text:      prompt,
		ParseMode: models.ParseModeHTML,
	})
	return err
}

func (m *settingsModule) statsCallback(ctx context.Context, req *Request) error {
	if req.Message == nil {
		return nil
	}
	b := req.Bot
	size, err := b.db.Usage(ctx)
	if err != nil {
		return err
	}
	text := fmt.Sprintf(
		"<b>Bot statistics</b>\n"+
			"• Users: <code>%d</code>\n"+
			"• Admins: <code>%d</code>\n"+
			"• Storage: %s (%s)\n"+
			"• Cached keys: <code>%d</code>",
		len(b.users(ctx)), len(b.admins(ctx)), b.db.BackendName(), html.EscapeString(size), b.db.CachedLen(),
	)
	_, err = req.API.EditMessageText(ctx, &tg.EditMessageTextParams{
		ChatID:      req.ChatID,
		MessageID:   req.Message.ID,
		Text:        text,
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: backToSettingsKeyboard(),
	})
	return err
}

func (m *settingsModule) cancel(ctx context.Context, req *Request) error {
	if !req.Bot.clearPendingInput(req.UserID) {
		return req.Reply(ctx, "Nothing to cancel.")
	}
	return req.Reply(ctx, "Operation cancelled.")
}

func settingsKeyboard() models.ReplyMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "Prefix", CallbackData: inputSetPrefix},
				{Text: "Max Warnings", CallbackData: inputSetMaxWarning},
			},
			{
				{Text: "Bot's Statistics", CallbackData: "bot_stats"},
			},
			{
				{Text: "Back To Home", CallbackData: "start"},
			},
		},
	}
}

func backToSettingsKeyboard() models.ReplyMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "Back", CallbackData: "settings"}},
		},
	}
}

// pending input plumbing on Bot

func (b *Bot) setPendingInput(userID int64, action string) error {
	return b.spam.cache.SetMapItem(keyPendingInput, strconv.FormatInt(userID, 10), action)
}

func (b *Bot) pendingInput(userID int64) (string, bool) {
	v := b.spam.cache.GetMapItem(keyPendingInput, strconv.FormatInt(userID, 10), nil)
	action, ok := v.(string)
	return action, ok && action != ""
}

func (b *Bot) clearPendingInput(userID int64) bool {
	if _, ok := b.pendingInput(userID); !ok {
		return false
	}
	_ = b.spam.cache.DeleteMapItem(keyPendingInput, strconv.FormatInt(userID, 10))
	return true
}

// consumePendingInput finishes an armed settings flow with the user's next
// plain message. Returns true when the message was consumed.
func (b *Bot) consumePendingInput(ctx context.Context, req *Request) bool {
	action, ok := b.pendingInput(req.UserID)
	if !ok {
		return false
	}
	b.clearPendingInput(req.UserID)

	text := strings.TrimSpace(req.Message.Text)
	switch action {
	case inputSetPrefix:
		prefixes := strings.Fields(text)
		if len(prefixes) == 0 {
			_ = req.Reply(ctx, "No prefixes received, keeping the current ones.")
			return true
		}
		raw := make([]any, 0, len(prefixes))
		for _, p := range prefixes {
			raw = append(raw, p)
		}
		if err := b.db.Set(ctx, keyPrefixes, raw); err != nil {
			b.reportError(ctx, req, "settings set_prefix", err)
			return true
		}
		b.applySettings(ctx, keyPrefixes)
		_ = req.Reply(ctx, fmt.Sprintf("Prefix updated to: <code>%s</code>", html.EscapeString(strings.Join(prefixes, " "))))
	case inputSetMaxWarning:
		n, err := strconv.Atoi(text)
		if err != nil || n < 1 {
			_ = req.Reply(ctx, "That's not a positive number. Send a number or /cancel to exit.")
			_ = b.setPendingInput(req.UserID, action)
			return true
		}
		if err := b.db.Set(ctx, keyMaxWarning, int64(n)); err != nil {
			b.reportError(ctx, req, "settings set_max_warning", err)
			return true
		}
		b.applySettings(ctx, keyMaxWarning)
		_ = req.Reply(ctx, fmt.Sprintf("Max warnings updated to <code>%d</code>.", n))
	default:
		b.logger.Warn("pending_input_unknown", "action", action, "user_id", req.UserID)
	}
	return true
}
