package bot

import (
	"fmt"
	"sort"
	"strings"
)

// Command is one chat command exposed by a module. Name and Aliases are
// matched case-insensitively after the prefix is stripped.
type Command struct {
	Name        string
	Aliases     []string
	Help        string
	AdminsOnly  bool
	OwnerOnly   bool
	PrivateOnly bool
	Handler     HandlerFunc
}

// Callback handles inline keyboard presses whose callback data starts with
// Prefix. Longer prefixes win when several match.
type Callback struct {
	Prefix  string
	Handler HandlerFunc
}

// Module groups related commands and callbacks so they can be registered as
// one unit.
type Module interface {
	Name() string
	Commands() []Command
	Callbacks() []Callback
}

// Router maps incoming text to commands and callback data to handlers.
// Prefixes are configurable; "/" is always accepted so the bot stays
// reachable even after a bad prefix update.
type Router struct {
	prefixes  []string
	commands  map[string]Command
	order     []string
	callbacks []Callback
}

func NewRouter(prefixes []string) *Router {
	r := &Router{commands: make(map[string]Command)}
	r.SetPrefixes(prefixes)
	return r
}

// SetPrefixes replaces the accepted command prefixes. "/" is re-added when
// missing, blanks are dropped.
func (r *Router) SetPrefixes(prefixes []string) {
	cleaned := make([]string, 0, len(prefixes)+1)
	hasSlash := false
	for _, p := range prefixes {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if p == "/" {
			hasSlash = true
		}
		cleaned = append(cleaned, p)
	}
	if !hasSlash {
		cleaned = append(cleaned, "/")
	}
	// Longest first so "!!" wins over "!".
	sort.Slice(cleaned, func(i, j int) bool { return len(cleaned[i]) > len(cleaned[j]) })
	r.prefixes = cleaned
}

func (r *Router) Prefixes() []string {
	return append([]string(nil), r.prefixes...)
}

// Register adds every command and callback of m. Duplicate command names or
// aliases are an error so module conflicts surface at startup.
func (r *Router) Register(m Module) error {
	for _, c := range m.Commands() {
		names := append([]string{c.Name}, c.Aliases...)
		for _, name := range names {
			name = strings.ToLower(strings.TrimSpace(name))
			if name == "" {
				return fmt.Errorf("module %s: command with empty name", m.Name())
			}
			if _, exists := r.commands[name]; exists {
				return fmt.Errorf("module %s: duplicate command %q", m.Name(), name)
			}
			r.commands[name] = c
			r.order = append(r.order, name)
		}
	}
	r.callbacks = append(r.callbacks, m.Callbacks()...)
	sort.Slice(r.callbacks, func(i, j int) bool {
		return len(r.callbacks[i].Prefix) > len(r.callbacks[j].Prefix)
	})
	return nil
}

// Lookup resolves a command by name or alias.
func (r *Router) Lookup(name string) (Command, bool) {
	c, ok := r.commands[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// LookupCallback resolves the handler for callback data by prefix match.
func (r *Router) LookupCallback(data string) (Callback, bool) {
	for _, cb := range r.callbacks {
		if strings.HasPrefix(data, cb.Prefix) {
			return cb, true
		}
	}
	return Callback{}, false
}

// Split parses message text into a command name and its argument tail. The
// second return is the raw argument string with surrounding space trimmed.
// ok is false when the text carries no accepted prefix. A "@botname" suffix
// on the command word is stripped, so "/keys@mybot" routes like "/keys".
func (r *Router) Split(text string) (name, args string, ok bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", "", false
	}
	for _, p := range r.prefixes {
		if !strings.HasPrefix(text, p) {
			continue
		}
		rest := text[len(p):]
		if rest == "" || rest[0] == ' ' {
			return "", "", false
		}
		word := rest
		if idx := strings.IndexByte(word, ' '); idx >= 0 {
			word, args = word[:idx], strings.TrimSpace(word[idx+1:])
		}
		if idx := strings.IndexByte(word, '@'); idx >= 0 {
			word = word[:idx]
		}
		if word == "" {
			return "", "", false
		}
		return strings.ToLower(word), args, true
	}
	return "", "", false
}

// Help returns one line per distinct command, sorted, for the help screen.
func (r *Router) Help() []string {
	seen := make(map[string]bool)
	var lines []string
	for _, name := range r.order {
		c := r.commands[name]
		if seen[c.Name] || c.Help == "" {
			continue
		}
		seen[c.Name] = true
		lines = append(lines, fmt.Sprintf("/%s — %s", c.Name, c.Help))
	}
	sort.Strings(lines)
	return lines
}

// allowed reports whether userID may invoke cmd. The owner passes every
// check; admins pass AdminsOnly.
func allowed(cmd Command, userID, ownerID int64, admins []int64) bool {
	if cmd.OwnerOnly {
		return userID == ownerID
	}
	if cmd.AdminsOnly {
		if userID == ownerID {
			return true
		}
		for _, id := range admins {
			if id == userID {
				return true
			}
		}
		return false
	}
	return true
}
