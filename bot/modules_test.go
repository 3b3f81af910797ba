package bot

import (
	"reflect"
	"testing"
)

func TestExtendValue(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		existing any
		addition any
		want     any
	}{
		{
			"list gains a scalar",
			[]any{int64(1), int64(2)},
			int64(3),
			[]any{int64(1), int64(2), int64(3)},
		},
		{
			"list gains novel items only",
			[]any{int64(1), int64(2)},
			[]any{int64(2), int64(3)},
			[]any{int64(1), int64(2), int64(3)},
		},
		{
			"duplicate scalar is dropped",
			[]any{"a"},
			"a",
			[]any{"a"},
		},
		{
			"scalars concatenate",
			"hello",
			"world",
			"hello world",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := extendValue(tc.existing, tc.addition)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("extendValue(%#v, %#v) = %#v, want %#v", tc.existing, tc.addition, got, tc.want)
			}
		})
	}
}

func TestIsDangerous(t *testing.T) {
	t.Parallel()

	dangerous := []string{
		"rm -rf /",
		"sudo RM -RF /home",
		"dd if=/dev/zero of=/dev/sda",
		"cat /etc/shadow",
		"echo pwned; shutdown now",
	}
	for _, cmd := range dangerous {
		if !isDangerous(cmd) {
			t.Fatalf("isDangerous(%q) = false, want true", cmd)
		}
	}

	harmless := []string{
		"ls -la",
		"df -h",
		"uptime",
		"git status",
	}
	for _, cmd := range harmless {
		if isDangerous(cmd) {
			t.Fatalf("isDangerous(%q) = true, want false", cmd)
		}
	}
}

func TestValueHelpers(t *testing.T) {
	t.Parallel()

	if got := toInt64Slice([]any{int64(1), float64(2), "3", "junk"}); !reflect.DeepEqual(got, []int64{1, 2, 3}) {
		t.Fatalf("toInt64Slice() = %v", got)
	}
	if got := toInt64Slice(int64(7)); !reflect.DeepEqual(got, []int64{7}) {
		t.Fatalf("toInt64Slice(scalar) = %v", got)
	}
	if got := toStringSlice([]any{"/", "!", int64(9)}); !reflect.DeepEqual(got, []string{"/", "!", "9"}) {
		t.Fatalf("toStringSlice() = %v", got)
	}
	if got := toStringSlice("/ ! ?"); !reflect.DeepEqual(got, []string{"/", "!", "?"}) {
		t.Fatalf("toStringSlice(string) = %v", got)
	}
}
