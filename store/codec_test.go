package store

import (
	"errors"
	"reflect"
	"testing"
)

func TestCodecRoundTrip(t *testing.T) {
	t.Parallel()

	values := []any{
		int64(42),
		3.5,
		true,
		"hello",
		[]any{int64(1), int64(2), "three"},
		map[string]any{"admins": []any{int64(111), int64(222)}, "limit": int64(3)},
	}

	for _, v := range values {
		text, err := encodeValue(v)
		if err != nil {
			t.Fatalf("encodeValue(%#v) error = %v", v, err)
		}
		got := decodeValue(text)
		if !reflect.DeepEqual(got, v) {
			t.Fatalf("decodeValue(encodeValue(%#v)) = %#v", v, got)
		}
	}
}

func TestDecodeValueRawText(t *testing.T) {
	t.Parallel()

	// Rows written by hand are not JSON; they come back verbatim.
	if got := decodeValue("not json at all"); got != "not json at all" {
		t.Fatalf("decodeValue() = %#v, want raw string", got)
	}
}

func TestEncodeValueUnsupported(t *testing.T) {
	t.Parallel()

	_, err := encodeValue(make(chan int))
	if err == nil {
		t.Fatal("encodeValue(chan) expected error")
	}
	if !errors.Is(err, ErrEncodeFailed) {
		t.Fatalf("encodeValue(chan) error = %v, want ErrEncodeFailed", err)
	}
}
