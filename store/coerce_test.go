package store

import (
	"reflect"
	"testing"
)

func TestCoerce(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want any
	}{
		{"integer", "42", int64(42)},
		{"negative integer", "-7", int64(-7)},
		{"float", "3.14", 3.14},
		{"bool true", "true", true},
		{"bool true mixed case", "True", true},
		{"bool false", "false", false},
		{"list", "[1, 2]", []any{int64(1), int64(2)}},
		{"mixed list", `["a", 2, false]`, []any{"a", int64(2), false}},
		{"map", `{"a": 1}`, map[string]any{"a": int64(1)}},
		{"nested", `{"ids": [10, 20]}`, map[string]any{"ids": []any{int64(10), int64(20)}}},
		{"quoted string stays literal", `"007"`, "007"},
		{"plain string", "hello", "hello"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
		{"trimmed", "  42  ", int64(42)},
		{"zero padded is lossy", "007", int64(7)},
		{"malformed list falls through", "[1, 2", "[1, 2"},
		{"trailing garbage falls through", `[1] x`, `[1] x`},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Coerce(tc.in)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Coerce(%q) = %#v (%T), want %#v (%T)", tc.in, got, got, tc.want, tc.want)
			}
		})
	}
}

func TestCoerceLargeFloat(t *testing.T) {
	t.Parallel()

	got := Coerce("1e3")
	if got != 1000.0 {
		t.Fatalf("Coerce(1e3) = %#v, want 1000.0", got)
	}
}
