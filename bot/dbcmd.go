package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/kallistraw/tgbot/store"
)

// databaseModule exposes the storage facade to admins from inside Telegram.
type databaseModule struct{}

func (m *databaseModule) Name() string { return "database" }

func (m *databaseModule) Commands() []Command {
	return []Command{
		{Name: "getdb", Help: "Get the value of a key from the database.", AdminsOnly: true, Handler: m.get},
		{Name: "setdb", Help: "Store a key-value pair. Use -e to extend an existing value.", AdminsOnly: true, Handler: m.set},
		{Name: "deldb", Help: "Delete a key from the database.", AdminsOnly: true, Handler: m.del},
		{Name: "keys", Help: "List all keys in the database.", AdminsOnly: true, Handler: m.keys},
		{Name: "usage", Aliases: []string{"dbinfo"}, Help: "Show storage backend info and usage.", AdminsOnly: true, Handler: m.usage},
		{Name: "refresh", Aliases: []string{"refreshdb"}, Help: "Reload the cache from the database.", AdminsOnly: true, Handler: m.refresh},
		{Name: "rename", Aliases: []string{"renamedb"}, Help: "Rename a database key.", AdminsOnly: true, Handler: m.rename},
	}
}

func (m *databaseModule) Callbacks() []Callback { return nil }

func (m *databaseModule) get(ctx context.Context, req *Request) error {
	key := strings.TrimSpace(req.Args)
	if key == "" {
		return req.Reply(ctx, "<b>Usage:</b>\n- /getdb key\n\n<b>Example:</b>\n- /getdb PREFIXES")
	}
	value, err := req.Bot.db.Get(ctx, key, nil)
	if err != nil {
		return err
	}
	if value == nil {
		return req.Reply(ctx, fmt.Sprintf("No such key: <code>%s</code>", html.EscapeString(key)))
	}
	text := fmt.Sprintf(
		"<b>%s</b>\n<b>Key:</b> <code>%s</code>\n<b>Value:</b> <code>%s</code>",
		req.Bot.db.BackendName(),
		html.EscapeString(key),
		html.EscapeString(fmt.Sprintf("%v", value)),
	)
	return req.Reply(ctx, text)
}

func (m *databaseModule) set(ctx context.Context, req *Request) error {
	const usage = "<b>Usage:</b>\n- /setdb [-e|--extend] key value\n\n" +
		"<b>Example:</b>\n- /setdb ADMINS [12345678]\n- /setdb -e ADMINS 87654321"

	args := req.Args
	extend := false
	if word, rest, found := strings.Cut(args, " "); found && (word == "-e" || word == "--extend") {
		extend = true
		args = rest
	}

	key, rawValue, found := strings.Cut(strings.TrimSpace(args), " ")
	if !found || strings.TrimSpace(rawValue) == "" {
		return req.Reply(ctx, usage)
	}
	key = strings.TrimSpace(key)
	value := store.Coerce(rawValue)

	verb := "stored"
	if extend {
		existing, err := req.Bot.db.Get(ctx, key, nil)
		if err != nil {
			return err
		}
		if existing == nil {
			return req.Reply(ctx, fmt.Sprintf("No such key: <code>%s</code>", html.EscapeString(key)))
		}
		value = extendValue(existing, value)
		verb = "updated"
	}

	if err := req.Bot.db.Set(ctx, key, value); err != nil {
		return err
	}
	req.Bot.applySettings(ctx, key)

	text := fmt.Sprintf(
		"<b>Key-value pair %s.</b>\n• <b>Key:</b> <code>%s</code>\n• <b>Value:</b> <code>%s</code>",
		verb,
		html.EscapeString(key),
		html.EscapeString(fmt.Sprintf("%v", value)),
	)
	return req.Reply(ctx, text)
}

// extendValue appends onto an existing value: lists extend with novel items,
// anything else degrades to string concatenation.
func extendValue(existing, addition any) any {
	list, ok := existing.([]any)
	if !ok {
		return fmt.Sprintf("%v %v", existing, addition)
	}
	items, ok := addition.([]any)
	if !ok {
		items = []any{addition}
	}
	for _, item := range items {
		dup := false
		for _, have := range list {
			if have == item {
				dup = true
				break
			}
		}
		if !dup {
			list = append(list, item)
		}
	}
	return list
}

func (m *databaseModule) del(ctx context.Context, req *Request) error {
	key := strings.TrimSpace(req.Args)
	if key == "" {
		return req.Reply(ctx, "<b>Usage:</b>\n- /deldb key")
	}
	value, err := req.Bot.db.Get(ctx, key, nil)
	if err != nil {
		return err
	}
	if value == nil {
		return req.Reply(ctx, fmt.Sprintf("No such key: <code>%s</code>", html.EscapeString(key)))
	}
	if err := req.Bot.db.Delete(ctx, key); err != nil {
		return err
	}
	return req.Reply(ctx, fmt.Sprintf("Deleted key <code>%s</code>.", html.EscapeString(key)))
}

func (m *databaseModule) keys(ctx context.Context, req *Request) error {
	keys, err := req.Bot.db.Keys(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return req.Reply(ctx, "The database is empty.")
	}
	sort.Strings(keys)
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<b>%d keys:</b>\n", len(keys)))
	for _, key := range keys {
		sb.WriteString("• <code>")
		sb.WriteString(html.EscapeString(key))
		sb.WriteString("</code>\n")
	}
	return req.Reply(ctx, sb.String())
}

func (m *databaseModule) usage(ctx context.Context, req *Request) error {
	size, err := req.Bot.db.Usage(ctx)
	if err != nil {
		return err
	}
	keys, err := req.Bot.db.Keys(ctx)
	if err != nil {
		return err
	}
	text := fmt.Sprintf(
		"<b>Storage:</b> %s\n<b>Keys:</b> %d\n<b>Cached keys:</b> %d\n<b>Size:</b> %s",
		req.Bot.db.BackendName(), len(keys), req.Bot.db.CachedLen(), html.EscapeString(size),
	)
	return req.Reply(ctx, text)
}

func (m *databaseModule) refresh(ctx context.Context, req *Request) error {
	if err := req.Bot.db.Refresh(ctx); err != nil {
		return err
	}
	req.Bot.applySettings(ctx, keyPrefixes)
	req.Bot.applySettings(ctx, keyMaxWarning)
	return req.Reply(ctx, fmt.Sprintf("Cache refreshed, %d keys loaded.", req.Bot.db.CachedLen()))
}

func (m *databaseModule) rename(ctx context.Context, req *Request) error {
	oldKey, newKey, found := strings.Cut(strings.TrimSpace(req.Args), " ")
	newKey = strings.TrimSpace(newKey)
	if !found || newKey == "" {
		return req.Reply(ctx, "<b>Usage:</b>\n- /rename old_key new_key")
	}
	err := req.Bot.db.Rename(ctx, oldKey, newKey)
	if errors.Is(err, store.ErrNoSuchKey) {
		return req.Reply(ctx, fmt.Sprintf("No such key: <code>%s</code>", html.EscapeString(oldKey)))
	}
	if err != nil {
		return err
	}
	return req.Reply(ctx, fmt.Sprintf(
		"Renamed <code>%s</code> to <code>%s</code>.",
		html.EscapeString(oldKey), html.EscapeString(newKey),
	))
}
