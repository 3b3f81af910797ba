package bot

import (
	"context"
	"fmt"
	"html"
	"os/exec"
	"strings"
	"time"

	tg "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const shellTimeout = 30 * time.Second

// dangerousFragments aborts commands that could wipe the host or exfiltrate
// credentials when issued by an admin who is not the owner.
var dangerousFragments = []string{
	"rm -rf",
	"rm -fr",
	"mkfs",
	"dd if=",
	":(){",
	"shutdown",
	"reboot",
	"> /dev/sda",
	"chmod -r 777 /",
	"/etc/passwd",
	"/etc/shadow",
}

// shellModule runs shell commands on the host. Admins may run harmless
// commands; anything matching the dangerous list is owner-only and reported.
type shellModule struct{}

func (m *shellModule) Name() string { return "shell" }

func (m *shellModule) Commands() []Command {
	return []Command{
		{
			Name:       "sh",
			Aliases:    []string{"shell"},
			Help:       "Execute a shell command on the host.",
			AdminsOnly: true,
			Handler:    m.run,
		},
	}
}

func (m *shellModule) Callbacks() []Callback { return nil }

func (m *shellModule) run(ctx context.Context, req *Request) error {
	b := req.Bot
	command := strings.TrimSpace(req.Args)
	if command == "" {
		return req.Reply(ctx, "<b>Usage:</b>\n- /sh &lt;command&gt;")
	}

	if isDangerous(command) && req.UserID != b.cfg.OwnerID {
		b.logger.Warn("shell_dangerous_blocked", "user_id", req.UserID, "command", command)
		if b.cfg.LogChannel != 0 {
			alert := fmt.Sprintf(
				"<b>Malicious activity detected!</b>\n<b>User:</b> <code>%d</code>\n<b>Command:</b>\n<pre>%s</pre>",
				req.UserID, html.EscapeString(command),
			)
			if _, err := b.api.SendMessage(ctx, &tg.SendMessageParams{
				ChatID:    b.cfg.LogChannel,
				Text:      alert,
				ParseMode: models.ParseModeHTML,
			}); err != nil {
				b.logger.Warn("telegram_send_error", "error", err.Error())
			}
		}
		return req.Reply(ctx, "<b>Dangerous command, operation aborted.</b>")
	}

	runCtx, cancel := context.WithTimeout(ctx, shellTimeout)
	defer cancel()

	start := time.Now()
	out, err := exec.CommandContext(runCtx, "sh", "-c", command).CombinedOutput()
	elapsed := time.Since(start).Truncate(time.Millisecond)

	output := strings.TrimSpace(string(out))
	if output == "" {
		if err != nil {
			output = err.Error()
		} else {
			output = "Success"
		}
	} else if err != nil {
		output += "\n" + err.Error()
	}
	if len(output) > 3500 {
		output = output[:3500] + "\n…(truncated)"
	}

	b.logger.Info("shell_exec", "user_id", req.UserID, "elapsed", elapsed.String(), "error", err != nil)

	text := fmt.Sprintf(
		"<b>• Shell</b> <i>(in %s)</i>\n<pre>%s</pre>\n\n<b>• Output:</b>\n<pre>%s</pre>",
		elapsed, html.EscapeString(command), html.EscapeString(output),
	)
	return req.Reply(ctx, text)
}

func isDangerous(command string) bool {
	lower := strings.ToLower(command)
	for _, fragment := range dangerousFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}
