package store

import (
	"errors"
	"reflect"
	"testing"
)

func TestCacheSetGetDelete(t *testing.T) {
	t.Parallel()

	c := NewCache()

	if _, ok := c.Get("missing"); ok {
		t.Fatal("Get() on empty cache reported a value")
	}
	if got := c.GetOr("missing", "fallback"); got != "fallback" {
		t.Fatalf("GetOr() = %v, want fallback", got)
	}

	c.Set("greeting", "hi")
	if got, ok := c.Get("greeting"); !ok || got != "hi" {
		t.Fatalf("Get() = %v, %v; want hi, true", got, ok)
	}

	c.Set("greeting", "hello")
	if got := c.GetOr("greeting", ""); got != "hello" {
		t.Fatalf("Get() after overwrite = %v, want hello", got)
	}

	c.Delete("greeting")
	if _, ok := c.Get("greeting"); ok {
		t.Fatal("Get() after Delete() reported a value")
	}
	// Deleting again is a no-op.
	c.Delete("greeting")
}

func TestCacheAddToList(t *testing.T) {
	t.Parallel()

	c := NewCache()

	if err := c.AddToList("admins", int64(111)); err != nil {
		t.Fatalf("AddToList() error = %v", err)
	}
	// Duplicate insertion is idempotent.
	if err := c.AddToList("admins", int64(111)); err != nil {
		t.Fatalf("AddToList() duplicate error = %v", err)
	}
	got := c.GetOr("admins", nil)
	if want := []any{int64(111)}; !reflect.DeepEqual(got, want) {
		t.Fatalf("list = %#v, want %#v", got, want)
	}

	// A slice item extends with novel elements only, preserving order.
	if err := c.AddToList("admins", []any{int64(111), int64(222), int64(333)}); err != nil {
		t.Fatalf("AddToList(batch) error = %v", err)
	}
	got = c.GetOr("admins", nil)
	if want := []any{int64(111), int64(222), int64(333)}; !reflect.DeepEqual(got, want) {
		t.Fatalf("list after batch = %#v, want %#v", got, want)
	}
}

func TestCacheAddToListTypeMismatch(t *testing.T) {
	t.Parallel()

	c := NewCache()
	c.Set("settings", map[string]any{"a": 1})

	err := c.AddToList("settings", "x")
	if !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("AddToList() on map error = %v, want ErrTypeMismatch", err)
	}
}

func TestCacheRemoveFromList(t *testing.T) {
	t.Parallel()

	c := NewCache()
	if err := c.AddToList("users", []any{int64(1), int64(2)}); err != nil {
		t.Fatalf("AddToList() error = %v", err)
	}

	if err := c.RemoveFromList("users", int64(1)); err != nil {
		t.Fatalf("RemoveFromList() error = %v", err)
	}
	got := c.GetOr("users", nil)
	if want := []any{int64(2)}; !reflect.DeepEqual(got, want) {
		t.Fatalf("list = %#v, want %#v", got, want)
	}

	// Removing the last element deletes the key: no key maps to an empty list.
	if err := c.RemoveFromList("users", int64(2)); err != nil {
		t.Fatalf("RemoveFromList() error = %v", err)
	}
	if _, ok := c.Get("users"); ok {
		t.Fatal("key still present after removing last list element")
	}

	// Absent key is a no-op.
	if err := c.RemoveFromList("users", int64(9)); err != nil {
		t.Fatalf("RemoveFromList() on absent key error = %v", err)
	}
}

func TestCacheMapItems(t *testing.T) {
	t.Parallel()

	c := NewCache()

	if err := c.SetMapItem("pending", "42", "set_prefix"); err != nil {
		t.Fatalf("SetMapItem() error = %v", err)
	}
	if got := c.GetMapItem("pending", "42", nil); got != "set_prefix" {
		t.Fatalf("GetMapItem() = %v, want set_prefix", got)
	}
	if got := c.GetMapItem("pending", "43", "none"); got != "none" {
		t.Fatalf("GetMapItem() missing subkey = %v, want none", got)
	}

	// Overwrite of a scalar sub-value.
	if err := c.SetMapItem("pending", "42", "set_thumb"); err != nil {
		t.Fatalf("SetMapItem() overwrite error = %v", err)
	}
	if got := c.GetMapItem("pending", "42", nil); got != "set_thumb" {
		t.Fatalf("GetMapItem() after overwrite = %v", got)
	}

	// A list sub-value accumulates instead of being replaced.
	if err := c.SetMapItem("loaded", "core", []any{"start"}); err != nil {
		t.Fatalf("SetMapItem() error = %v", err)
	}
	if err := c.SetMapItem("loaded", "core", "help"); err != nil {
		t.Fatalf("SetMapItem() fan-in error = %v", err)
	}
	got := c.GetMapItem("loaded", "core", nil)
	if want := []any{"start", "help"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("fan-in sub-value = %#v, want %#v", got, want)
	}

	// Deleting the last subkey removes the outer key.
	if err := c.DeleteMapItem("pending", "42"); err != nil {
		t.Fatalf("DeleteMapItem() error = %v", err)
	}
	if _, ok := c.Get("pending"); ok {
		t.Fatal("outer key still present after deleting last subkey")
	}
}

func TestCacheMapTypeMismatch(t *testing.T) {
	t.Parallel()

	c := NewCache()
	c.Set("users", []any{int64(1)})

	if err := c.SetMapItem("users", "a", 1); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("SetMapItem() on list error = %v, want ErrTypeMismatch", err)
	}
	if err := c.DeleteMapItem("users", "a"); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("DeleteMapItem() on list error = %v, want ErrTypeMismatch", err)
	}
}

func TestCacheKeysLenClear(t *testing.T) {
	t.Parallel()

	c := NewCache()
	c.Set("a", 1)
	c.Set("b", 2)

	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	keys := c.Keys()
	if len(keys) != 2 {
		t.Fatalf("Keys() returned %d keys, want 2", len(keys))
	}

	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("Len() after Clear() = %d, want 0", c.Len())
	}
}
