package bot

import (
	"context"
	"testing"
)

type fakeModule struct {
	name      string
	commands  []Command
	callbacks []Callback
}

func (m *fakeModule) Name() string          { return m.name }
func (m *fakeModule) Commands() []Command   { return m.commands }
func (m *fakeModule) Callbacks() []Callback { return m.callbacks }

func TestRouterSplit(t *testing.T) {
	t.Parallel()

	r := NewRouter([]string{"!", "?"})

	cases := []struct {
		name     string
		in       string
		wantName string
		wantArgs string
		wantOK   bool
	}{
		{"slash always works", "/keys", "keys", "", true},
		{"custom prefix", "!keys", "keys", "", true},
		{"second custom prefix", "?getdb PREFIXES", "getdb", "PREFIXES", true},
		{"args preserved", "/setdb -e ADMINS 42", "setdb", "-e ADMINS 42", true},
		{"botname suffix stripped", "/keys@mybot", "keys", "", true},
		{"botname suffix with args", "/getdb@mybot USERS", "getdb", "USERS", true},
		{"uppercase normalized", "/KEYS", "keys", "", true},
		{"leading space trimmed", "  /keys", "keys", "", true},
		{"plain text", "hello there", "", "", false},
		{"unknown prefix", "$keys", "", "", false},
		{"prefix alone", "/", "", "", false},
		{"prefix then space", "/ keys", "", "", false},
		{"empty", "", "", "", false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			name, args, ok := r.Split(tc.in)
			if name != tc.wantName || args != tc.wantArgs || ok != tc.wantOK {
				t.Fatalf("Split(%q) = (%q, %q, %v), want (%q, %q, %v)",
					tc.in, name, args, ok, tc.wantName, tc.wantArgs, tc.wantOK)
			}
		})
	}
}

func TestRouterSetPrefixesKeepsSlash(t *testing.T) {
	t.Parallel()

	r := NewRouter(nil)
	r.SetPrefixes([]string{"!", "  ", ""})

	if _, _, ok := r.Split("/ping"); !ok {
		t.Fatal("Split() rejected the / prefix after SetPrefixes without it")
	}
	if _, _, ok := r.Split("!ping"); !ok {
		t.Fatal("Split() rejected a configured prefix")
	}
}

func TestRouterRegisterAndLookup(t *testing.T) {
	t.Parallel()

	r := NewRouter(nil)
	handler := func(ctx context.Context, req *Request) error { return nil }
	mod := &fakeModule{
		name: "test",
		commands: []Command{
			{Name: "broadcast", Aliases: []string{"bc"}, Help: "send to everyone", Handler: handler},
		},
	}
	if err := r.Register(mod); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if _, ok := r.Lookup("broadcast"); !ok {
		t.Fatal("Lookup(broadcast) not found")
	}
	cmd, ok := r.Lookup("bc")
	if !ok {
		t.Fatal("Lookup(bc) alias not found")
	}
	if cmd.Name != "broadcast" {
		t.Fatalf("alias resolved to %q, want broadcast", cmd.Name)
	}
	if _, ok := r.Lookup("nope"); ok {
		t.Fatal("Lookup(nope) unexpectedly found")
	}

	// Re-registering the same name must fail loudly.
	if err := r.Register(mod); err == nil {
		t.Fatal("Register() accepted a duplicate command")
	}
}

func TestRouterLookupCallbackLongestPrefixWins(t *testing.T) {
	t.Parallel()

	r := NewRouter(nil)
	handler := func(ctx context.Context, req *Request) error { return nil }
	mod := &fakeModule{
		name: "test",
		callbacks: []Callback{
			{Prefix: "set_", Handler: handler},
			{Prefix: "set_prefix", Handler: handler},
		},
	}
	if err := r.Register(mod); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	cb, ok := r.LookupCallback("set_prefix")
	if !ok {
		t.Fatal("LookupCallback(set_prefix) not found")
	}
	if cb.Prefix != "set_prefix" {
		t.Fatalf("matched prefix %q, want set_prefix", cb.Prefix)
	}
	if _, ok := r.LookupCallback("unrelated"); ok {
		t.Fatal("LookupCallback(unrelated) unexpectedly matched")
	}
}

func TestAllowed(t *testing.T) {
	t.Parallel()

	const owner, admin, user = int64(1), int64(2), int64(3)
	admins := []int64{admin}

	cases := []struct {
		name   string
		cmd    Command
		userID int64
		want   bool
	}{
		{"open command, anyone", Command{}, user, true},
		{"admins only, plain user", Command{AdminsOnly: true}, user, false},
		{"admins only, admin", Command{AdminsOnly: true}, admin, true},
		{"admins only, owner", Command{AdminsOnly: true}, owner, true},
		{"owner only, admin", Command{OwnerOnly: true}, admin, false},
		{"owner only, owner", Command{OwnerOnly: true}, owner, true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := allowed(tc.cmd, tc.userID, owner, admins); got != tc.want {
				t.Fatalf("allowed() = %v, want %v", got, tc.want)
			}
		})
	}
}
