package bot

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	tg "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"

	"github.com/kallistraw/tgbot/internal/retryutil"
)

// broadcastDelay spaces out sends to stay under Telegram's flood limits.
const broadcastDelay = 500 * time.Millisecond

// broadcastModule forwards a message to every user recorded under USERS.
type broadcastModule struct{}

func (m *broadcastModule) Name() string { return "broadcast" }

func (m *broadcastModule) Commands() []Command {
	return []Command{
		{
			Name:       "broadcast",
			Aliases:    []string{"bc"},
			Help:       "Send a message to all the bot's users.",
			AdminsOnly: true,
			Handler:    m.broadcast,
		},
	}
}

func (m *broadcastModule) Callbacks() []Callback { return nil }

func (m *broadcastModule) broadcast(ctx context.Context, req *Request) error {
	b := req.Bot

	text := strings.TrimSpace(req.Args)
	if text == "" && req.Message.ReplyToMessage != nil {
		text = strings.TrimSpace(req.Message.ReplyToMessage.Text)
	}
	if text == "" {
		return req.Reply(ctx, "<b>Usage:</b>\n- /broadcast &lt;your message&gt; or reply to a message")
	}

	users := b.users(ctx)
	if len(users) == 0 {
		return req.Reply(ctx, "No recorded users to broadcast to.")
	}

	jobID := uuid.New().String()
	b.logger.Info("broadcast_start", "job_id", jobID, "users", len(users), "from", req.UserID)

	status, err := req.API.SendMessage(ctx, &tg.SendMessageParams{
		ChatID: req.ChatID,
		Text:   fmt.Sprintf("Broadcasting to %d users...", len(users)),
	})
	if err != nil {
		return err
	}

	sent := 0
	var failures []string
	for _, userID := range users {
		userID := userID
		sendErr := retryutil.Do(ctx, b.logger, "broadcast_send", 2, time.Second, func(ctx context.Context) error {
			_, err := req.API.SendMessage(ctx, &tg.SendMessageParams{
				ChatID: userID,
				Text:   text,
			})
			return err
		})
		if sendErr != nil {
			failures = append(failures, fmt.Sprintf("tg://user?id=%d: %s", userID, sendErr.Error()))
			b.logger.Warn("broadcast_send_error", "job_id", jobID, "user_id", userID, "error", sendErr.Error())
		} else {
			sent++
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(broadcastDelay):
		}
	}

	summary := fmt.Sprintf("Message has been sent to <i>%d users</i>.", sent)
	if len(failures) > 0 {
		summary += fmt.Sprintf("\n<b>Failed</b> to reach %d users; details went to the log channel.", len(failures))
		m.reportFailures(ctx, b, jobID, failures)
	}
	b.logger.Info("broadcast_done", "job_id", jobID, "sent", sent, "failed", len(failures))

	_, err = req.API.EditMessageText(ctx, &tg.EditMessageTextParams{
		ChatID:    req.ChatID,
		MessageID: status.ID,
		Text:      summary,
		ParseMode: models.ParseModeHTML,
	})
	return err
}

func (m *broadcastModule) reportFailures(ctx context.Context, b *Bot, jobID string, failures []string) {
	if b.cfg.LogChannel == 0 {
		return
	}
	report := fmt.Sprintf("<b>Broadcast %s failures:</b>\n%s",
		jobID, html.EscapeString(strings.Join(failures, "\n")))
	// Telegram caps messages at 4096 chars.
	if len(report) > 4000 {
		report = report[:4000] + "\n…"
	}
	if _, err := b.api.SendMessage(ctx, &tg.SendMessageParams{
		ChatID:    b.cfg.LogChannel,
		Text:      report,
		ParseMode: models.ParseModeHTML,
	}); err != nil {
		b.logger.Warn("telegram_send_error", "error", err.Error())
	}
}
