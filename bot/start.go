package bot

import (
	"context"
	"fmt"
	"html"
	"strings"

	tg "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const sourceURL = "https://github.com/kallistraw/tgbot"

// startModule greets users and records first-time visitors under USERS so
// broadcast can reach them later.
type startModule struct{}

func (m *startModule) Name() string { return "start" }

func (m *startModule) Commands() []Command {
	return []Command{
		{
			Name:    "start",
			Aliases: []string{"home"},
			Help:    "The bot's main menu.",
			Handler: m.start,
		},
		{
			Name:    "help",
			Help:    "List available commands.",
			Handler: m.help,
		},
	}
}

func (m *startModule) Callbacks() []Callback {
	return []Callback{
		{Prefix: "help", Handler: m.helpCallback},
		{Prefix: "start", Handler: m.startCallback},
	}
}

func (m *startModule) start(ctx context.Context, req *Request) error {
	b := req.Bot
	firstTime, err := m.recordUser(ctx, req)
	if err != nil {
		b.logger.Warn("store_set_error", "key", keyUsers, "error", err.Error())
	}

	firstName := ""
	if req.Message != nil && req.Message.From != nil {
		firstName = strings.TrimSpace(req.Message.From.FirstName)
	}
	if firstName == "" {
		firstName = "there"
	}

	var text string
	if firstTime {
		text = fmt.Sprintf("Hello %s!\n\nMy name is %s, nice to meet you!",
			html.EscapeString(firstName), html.EscapeString(b.botName))
	} else {
		text = fmt.Sprintf("Welcome back, %s!", html.EscapeString(firstName))
	}

	params := &tg.SendMessageParams{
		ChatID:      req.ChatID,
		Text:        text,
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: startKeyboard(),
	}
	if req.Message != nil {
		params.ReplyParameters = &models.ReplyParameters{MessageID: req.Message.ID}
	}
	_, err = req.API.SendMessage(ctx, params)
	return err
}

// recordUser appends the sender to USERS when unseen. Returns whether this
// was their first visit.
func (m *startModule) recordUser(ctx context.Context, req *Request) (bool, error) {
	b := req.Bot
	for _, id := range b.users(ctx) {
		if id == req.UserID {
			return false, nil
		}
	}
	existing, _ := b.db.Get(ctx, keyUsers, nil)
	raw := append([]any{}, toAnySlice(existing)...)
	raw = append(raw, req.UserID)
	return true, b.db.Set(ctx, keyUsers, raw)
}

func (m *startModule) help(ctx context.Context, req *Request) error {
	return req.Reply(ctx, helpText(req.Bot))
}

func (m *startModule) helpCallback(ctx context.Context, req *Request) error {
	if req.Message == nil {
		return nil
	}
	_, err := req.API.EditMessageText(ctx, &tg.EditMessageTextParams{
		ChatID:      req.ChatID,
		MessageID:   req.Message.ID,
		Text:        helpText(req.Bot),
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: backToHomeKeyboard(),
	})
	return err
}

func (m *startModule) startCallback(ctx context.Context, req *Request) error {
	if req.Message == nil {
		return nil
	}
	_, err := req.API.EditMessageText(ctx, &tg.EditMessageTextParams{
		ChatID:      req.ChatID,
		MessageID:   req.Message.ID,
		Text:        fmt.Sprintf("Hi! I'm %s.", html.EscapeString(req.Bot.botName)),
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: startKeyboard(),
	})
	return err
}

func helpText(b *Bot) string {
	lines := b.router.Help()
	if len(lines) == 0 {
		return "Available helps:\n<code>None</code>"
	}
	var sb strings.Builder
	sb.WriteString("<b>Available commands:</b>\n")
	for _, line := range lines {
		sb.WriteString(html.EscapeString(line))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func startKeyboard() models.ReplyMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "Help", CallbackData: "help"},
				{Text: "Source", URL: sourceURL},
			},
		},
	}
}

func backToHomeKeyboard() models.ReplyMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "Back To Home", CallbackData: "start"}},
		},
	}
}

func toAnySlice(v any) []any {
	if items, ok := v.([]any); ok {
		return items
	}
	if v == nil {
		return nil
	}
	return []any{v}
}
