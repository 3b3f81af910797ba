// Package bot implements the Telegram assistant: a long-polling client, a
// prefix-aware command router with owner/admin authorization, and the builtin
// modules (greeting, database management, settings, broadcast, shell,
// anti-spam, private-message forwarding).
package bot

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tg "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/kallistraw/tgbot/internal/retryutil"
	"github.com/kallistraw/tgbot/store"
)

// Storage keys shared across modules. Uppercase names match what operators
// see and edit through /getdb and /setdb.
const (
	keyUsers        = "USERS"
	keyAdmins       = "ADMINS"
	keyPrefixes     = "PREFIXES"
	keyBlockedUsers = "BLOCKED_USERS"
	keyMaxWarning   = "MAX_WARNING"
)

// cache-only keys (never persisted)
const (
	keyPendingInput = "pending_input"
)

const defaultMaxWarnings = 3

// Config carries the runtime settings of the bot process.
type Config struct {
	Token string
	// OwnerID always passes authorization and receives dangerous-command
	// alerts.
	OwnerID int64
	// LogChannel receives forwarded private messages, handler error reports
	// and broadcast failure summaries. Zero disables forwarding.
	LogChannel int64
	// Prefixes seeds the accepted command prefixes; the persisted PREFIXES
	// key overrides it once set. "/" is always accepted.
	Prefixes []string
	// MaxWarnings is the spam warning count that triggers a block. The
	// persisted MAX_WARNING key overrides it.
	MaxWarnings int
}

// HandlerFunc processes one routed update. A returned error is reported to
// the log channel and answered with a generic message.
type HandlerFunc func(ctx context.Context, req *Request) error

// Request is the routed view of one update handed to command and callback
// handlers.
type Request struct {
	Bot     *Bot
	API     *tg.Bot
	Update  *models.Update
	Message *models.Message
	Query   *models.CallbackQuery

	// Command fields, set for command dispatches only.
	Command string
	Args    string

	UserID int64
	ChatID int64
}

// Reply sends text to the request's chat, replying to the triggering message
// when there is one.
func (req *Request) Reply(ctx context.Context, text string) error {
	params := &tg.SendMessageParams{
		ChatID:    req.ChatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if req.Message != nil {
		params.ReplyParameters = &models.ReplyParameters{MessageID: req.Message.ID}
	}
	_, err := req.API.SendMessage(ctx, params)
	return err
}

// Bot wires the Telegram client, the router, the storage facade and the spam
// guard together.
type Bot struct {
	cfg    Config
	db     *store.DB
	logger *slog.Logger
	router *Router
	spam   *spamGuard

	api      *tg.Bot
	username string
	botName  string
}

// New builds the bot, registers the builtin modules and constructs the
// long-polling client. It does not touch the network; Start does.
func New(cfg Config, db *store.DB, logger *slog.Logger) (*Bot, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("missing bot token")
	}
	if db == nil {
		return nil, fmt.Errorf("nil store")
	}
	if logger == nil {
		logger = slog.Default()
	}

	b := &Bot{
		cfg:    cfg,
		db:     db,
		logger: logger,
		router: NewRouter(cfg.Prefixes),
		spam:   newSpamGuard(store.NewCache(), 0, 0),
	}

	for _, m := range []Module{
		&startModule{},
		&databaseModule{},
		&settingsModule{},
		&broadcastModule{},
		&shellModule{},
	} {
		if err := b.router.Register(m); err != nil {
			return nil, err
		}
	}

	api, err := tg.New(cfg.Token,
		tg.WithDefaultHandler(b.handleUpdate),
		tg.WithErrorsHandler(func(err error) {
			if err != nil {
				logger.Warn("telegram_poll_error", "error", err.Error())
			}
		}),
		tg.WithAllowedUpdates(tg.AllowedUpdates{"message", "callback_query"}),
	)
	if err != nil {
		return nil, fmt.Errorf("init telegram client: %w", err)
	}
	b.api = api
	return b, nil
}

// Start loads persisted settings, announces itself and polls for updates
// until ctx is canceled.
func (b *Bot) Start(ctx context.Context) error {
	me, err := b.api.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("telegram getMe: %w", err)
	}
	b.username = me.Username
	b.botName = strings.TrimSpace(me.FirstName)
	if b.botName == "" {
		b.botName = me.Username
	}

	b.router.SetPrefixes(b.prefixes(ctx))
	b.spam.SetMaxWarnings(b.maxWarnings(ctx))

	b.logger.Info("telegram_start",
		"bot_username", b.username,
		"bot_id", me.ID,
		"backend", b.db.BackendName(),
		"prefixes", strings.Join(b.router.Prefixes(), " "),
	)

	b.api.Start(ctx)
	b.logger.Info("telegram_stopped")
	return nil
}

func (b *Bot) handleUpdate(ctx context.Context, api *tg.Bot, update *models.Update) {
	if update == nil {
		return
	}
	switch {
	case update.Message != nil:
		b.handleMessage(ctx, update)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update)
	}
}

func (b *Bot) handleMessage(ctx context.Context, update *models.Update) {
	msg := update.Message
	if msg.From == nil || msg.From.IsBot {
		return
	}
	userID := msg.From.ID
	chatID := msg.Chat.ID
	isPrivate := msg.Chat.Type == models.ChatTypePrivate
	text := strings.TrimSpace(msg.Text)

	req := &Request{
		Bot:     b,
		API:     b.api,
		Update:  update,
		Message: msg,
		UserID:  userID,
		ChatID:  chatID,
	}

	if b.isBlocked(ctx, userID) {
		b.logger.Debug("message_dropped_blocked", "user_id", userID)
		return
	}

	if name, args, ok := b.router.Split(text); ok {
		cmd, found := b.router.Lookup(name)
		if !found {
			b.logger.Debug("command_unknown", "command", name, "chat_id", chatID)
			return
		}
		req.Command = name
		req.Args = args
		b.dispatch(ctx, cmd, req)
		return
	}

	if !isPrivate {
		return
	}

	// Multi-step settings flows consume the next plain message.
	if b.consumePendingInput(ctx, req) {
		return
	}

	if !b.isAuthorized(ctx, userID) {
		switch verdict := b.spam.Check(userID); verdict.Action {
		case spamWarn:
			warnText := fmt.Sprintf(
				"You've been warned for spamming, please kindly <i>wait for reply</i>.\n"+
					"Your current warning count is %d/%d.\n"+
					"You will get <i>blocked</i> when your warning count reaches %d.",
				verdict.Warnings, verdict.MaxWarnings, verdict.MaxWarnings,
			)
			if err := req.Reply(ctx, warnText); err != nil {
				b.logger.Warn("telegram_send_error", "error", err.Error())
			}
			return
		case spamBlock:
			if err := b.blockUser(ctx, userID); err != nil {
				b.logger.Warn("store_set_error", "key", keyBlockedUsers, "error", err.Error())
			}
			if err := req.Reply(ctx, "You've been blocked for spamming!"); err != nil {
				b.logger.Warn("telegram_send_error", "error", err.Error())
			}
			b.logger.Info("user_blocked", "user_id", userID, "reason", "spam")
			return
		}
	}

	b.forwardToLogChannel(ctx, req)
}

func (b *Bot) handleCallback(ctx context.Context, update *models.Update) {
	query := update.CallbackQuery
	req := &Request{
		Bot:    b,
		API:    b.api,
		Update: update,
		Query:  query,
		UserID: query.From.ID,
	}
	if query.Message.Type == models.MaybeInaccessibleMessageTypeMessage && query.Message.Message != nil {
		req.Message = query.Message.Message
		req.ChatID = query.Message.Message.Chat.ID
	}

	_, _ = b.api.AnswerCallbackQuery(ctx, &tg.AnswerCallbackQueryParams{
		CallbackQueryID: query.ID,
	})

	cb, ok := b.router.LookupCallback(query.Data)
	if !ok {
		b.logger.Debug("callback_unknown", "data", query.Data)
		return
	}
	if err := cb.Handler(ctx, req); err != nil {
		b.reportError(ctx, req, "callback "+query.Data, err)
	}
}

func (b *Bot) dispatch(ctx context.Context, cmd Command, req *Request) {
	if cmd.PrivateOnly && req.Message.Chat.Type != models.ChatTypePrivate {
		return
	}
	if !allowed(cmd, req.UserID, b.cfg.OwnerID, b.admins(ctx)) {
		b.logger.Info("command_denied", "command", req.Command, "user_id", req.UserID)
		if err := req.Reply(ctx, "You are not allowed to use this command."); err != nil {
			b.logger.Warn("telegram_send_error", "error", err.Error())
		}
		return
	}

	b.logger.Info("command_dispatch", "command", req.Command, "user_id", req.UserID, "chat_id", req.ChatID)
	if err := cmd.Handler(ctx, req); err != nil {
		b.reportError(ctx, req, "/"+req.Command, err)
	}
}

// reportError tells the log channel what broke and gives the user a generic
// answer so internals never leak into chats.
func (b *Bot) reportError(ctx context.Context, req *Request, source string, err error) {
	b.logger.Error("handler_error", "source", source, "user_id", req.UserID, "error", err.Error())

	if b.cfg.LogChannel != 0 {
		report := fmt.Sprintf(
			"<b>Handler error</b>\nSource: <code>%s</code>\nUser: <code>%d</code>\nError: <code>%s</code>",
			html.EscapeString(source), req.UserID, html.EscapeString(err.Error()),
		)
		if _, sendErr := b.api.SendMessage(ctx, &tg.SendMessageParams{
			ChatID:    b.cfg.LogChannel,
			Text:      report,
			ParseMode: models.ParseModeHTML,
		}); sendErr != nil {
			b.logger.Warn("telegram_send_error", "error", sendErr.Error())
		}
	}
	if req.ChatID != 0 {
		_ = req.Reply(ctx, "Oops, something went wrong. The incident has been reported.")
	}
}

// forwardToLogChannel relays a non-command private message so the owner can
// answer from the log channel.
func (b *Bot) forwardToLogChannel(ctx context.Context, req *Request) {
	if b.cfg.LogChannel == 0 || req.Message == nil {
		return
	}
	err := retryutil.Do(ctx, b.logger, "dm_forward", 2, time.Second, func(ctx context.Context) error {
		_, err := b.api.ForwardMessage(ctx, &tg.ForwardMessageParams{
			ChatID:     b.cfg.LogChannel,
			FromChatID: req.ChatID,
			MessageID:  req.Message.ID,
		})
		return err
	})
	if err != nil {
		b.logger.Warn("dm_forward_error", "user_id", req.UserID, "error", err.Error())
		return
	}
	b.logger.Debug("dm_forwarded", "user_id", req.UserID)

	// Tell first-time writers what to expect; cached so it happens once per
	// process lifetime.
	seenKey := "dm_notice_" + strconv.FormatInt(req.UserID, 10)
	if _, seen := b.cacheGet(seenKey); !seen {
		b.db.SetCached(seenKey, true)
		notice := "Your message has been forwarded, please kindly <i>wait for reply</i>."
		if err := req.Reply(ctx, notice); err != nil {
			b.logger.Warn("telegram_send_error", "error", err.Error())
		}
	}
}

// applySettings re-reads a live setting after its key changed through /setdb
// or a settings flow, so changes take effect without a restart.
func (b *Bot) applySettings(ctx context.Context, key string) {
	switch strings.ToUpper(strings.TrimSpace(key)) {
	case keyPrefixes:
		b.router.SetPrefixes(b.prefixes(ctx))
	case keyMaxWarning:
		b.spam.SetMaxWarnings(b.maxWarnings(ctx))
	}
}

// settings lookups

func (b *Bot) prefixes(ctx context.Context) []string {
	v, err := b.db.Get(ctx, keyPrefixes, nil)
	if err != nil || v == nil {
		return b.cfg.Prefixes
	}
	out := toStringSlice(v)
	if len(out) == 0 {
		return b.cfg.Prefixes
	}
	return out
}

func (b *Bot) admins(ctx context.Context) []int64 {
	v, err := b.db.Get(ctx, keyAdmins, nil)
	if err != nil || v == nil {
		return nil
	}
	return toInt64Slice(v)
}

func (b *Bot) users(ctx context.Context) []int64 {
	v, err := b.db.Get(ctx, keyUsers, nil)
	if err != nil || v == nil {
		return nil
	}
	return toInt64Slice(v)
}

func (b *Bot) maxWarnings(ctx context.Context) int {
	v, err := b.db.Get(ctx, keyMaxWarning, nil)
	if err != nil || v == nil {
		if b.cfg.MaxWarnings > 0 {
			return b.cfg.MaxWarnings
		}
		return defaultMaxWarnings
	}
	if n, ok := toInt64(v); ok && n > 0 {
		return int(n)
	}
	return defaultMaxWarnings
}

func (b *Bot) isAuthorized(ctx context.Context, userID int64) bool {
	if userID == b.cfg.OwnerID {
		return true
	}
	for _, id := range b.admins(ctx) {
		if id == userID {
			return true
		}
	}
	return false
}

func (b *Bot) isBlocked(ctx context.Context, userID int64) bool {
	v, err := b.db.Get(ctx, keyBlockedUsers, nil)
	if err != nil || v == nil {
		return false
	}
	for _, id := range toInt64Slice(v) {
		if id == userID {
			return true
		}
	}
	return false
}

func (b *Bot) blockUser(ctx context.Context, userID int64) error {
	v, _ := b.db.Get(ctx, keyBlockedUsers, nil)
	blocked := toInt64Slice(v)
	for _, id := range blocked {
		if id == userID {
			return nil
		}
	}
	raw := make([]any, 0, len(blocked)+1)
	for _, id := range blocked {
		raw = append(raw, id)
	}
	raw = append(raw, userID)
	return b.db.Set(ctx, keyBlockedUsers, raw)
}

func (b *Bot) cacheGet(key string) (any, bool) {
	v, err := b.db.Get(context.Background(), key, nil)
	if err != nil || v == nil {
		return nil, false
	}
	return v, true
}

// value helpers; stored values arrive as the decoded JSON shapes the store
// produces (int64, float64, []any).

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func toInt64Slice(v any) []int64 {
	items, ok := v.([]any)
	if !ok {
		if n, ok := toInt64(v); ok {
			return []int64{n}
		}
		return nil
	}
	out := make([]int64, 0, len(items))
	for _, item := range items {
		if n, ok := toInt64(item); ok {
			out = append(out, n)
		}
	}
	return out
}

func toStringSlice(v any) []string {
	switch s := v.(type) {
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			text := strings.TrimSpace(fmt.Sprintf("%v", item))
			if text != "" {
				out = append(out, text)
			}
		}
		return out
	case string:
		return strings.Fields(s)
	default:
		return nil
	}
}
