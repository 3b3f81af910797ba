package store

import (
	"fmt"
	"reflect"
	"sync"
)

// Cache is a process-lifetime keyed store over arbitrary nested values. It
// fronts a Backend inside DB and doubles as the shared home for transient
// per-process state (pending input flags, spam windows, the loaded-module
// registry) so call sites never hand-roll list/map merge logic.
//
// There is no eviction and no TTL: the key set is small and bounded, and
// entries live exactly as long as the process. Writes are last-write-wins;
// a read-modify-write of a contended counter through the cache is racy and
// needs an atomic primitive at the backend instead.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]any
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]any)}
}

// Set stores value under key, overwriting unconditionally.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	c.entries[key] = value
	c.mu.Unlock()
}

// Get returns the stored value and whether the key exists.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	v, ok := c.entries[key]
	c.mu.RUnlock()
	return v, ok
}

// GetOr returns the stored value, or def when the key is absent.
func (c *Cache) GetOr(key string, def any) any {
	if v, ok := c.Get(key); ok {
		return v
	}
	return def
}

// Delete removes the key. Removing an absent key is a no-op.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// AddToList appends item to the list stored under key, initializing an empty
// list for an absent key. Duplicates are skipped, so the operation is
// idempotent. A slice item is treated as a batch: only its novel elements are
// appended, in order.
func (c *Cache) AddToList(key string, item any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, ok := c.entries[key]
	if !ok {
		cur = []any{}
	}
	list, ok := cur.([]any)
	if !ok {
		return fmt.Errorf("%w: %q holds %T, want list", ErrTypeMismatch, key, cur)
	}

	if batch, ok := item.([]any); ok {
		for _, it := range batch {
			if !containsValue(list, it) {
				list = append(list, it)
			}
		}
	} else if !containsValue(list, item) {
		list = append(list, item)
	}

	c.entries[key] = list
	return nil
}

// RemoveFromList removes item from the list stored under key. When the list
// becomes empty the key is deleted: no key ever maps to an empty list.
func (c *Cache) RemoveFromList(key string, item any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, ok := c.entries[key]
	if !ok {
		return nil
	}
	list, ok := cur.([]any)
	if !ok {
		return fmt.Errorf("%w: %q holds %T, want list", ErrTypeMismatch, key, cur)
	}

	kept := list[:0]
	for _, it := range list {
		if !reflect.DeepEqual(it, item) {
			kept = append(kept, it)
		}
	}
	if len(kept) == 0 {
		delete(c.entries, key)
		return nil
	}
	c.entries[key] = kept
	return nil
}

// SetMapItem sets subkey within the map stored under key, initializing an
// empty map for an absent key. When the existing sub-value is a list the new
// value is appended to it instead, so repeated writes under one subkey fan in
// rather than overwrite.
func (c *Cache) SetMapItem(key, subkey string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, ok := c.entries[key]
	if !ok {
		cur = map[string]any{}
	}
	m, ok := cur.(map[string]any)
	if !ok {
		return fmt.Errorf("%w: %q holds %T, want map", ErrTypeMismatch, key, cur)
	}

	if existing, ok := m[subkey]; ok {
		if list, ok := existing.([]any); ok {
			m[subkey] = append(list, value)
			c.entries[key] = m
			return nil
		}
	}
	m[subkey] = value
	c.entries[key] = m
	return nil
}

// GetMapItem returns the value stored under key's subkey, or def.
func (c *Cache) GetMapItem(key, subkey string, def any) any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if m, ok := c.entries[key].(map[string]any); ok {
		if v, ok := m[subkey]; ok {
			return v
		}
	}
	return def
}

// DeleteMapItem removes subkey from the map stored under key. When the map
// becomes empty the outer key is deleted.
func (c *Cache) DeleteMapItem(key, subkey string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, ok := c.entries[key]
	if !ok {
		return nil
	}
	m, ok := cur.(map[string]any)
	if !ok {
		return fmt.Errorf("%w: %q holds %T, want map", ErrTypeMismatch, key, cur)
	}
	delete(m, subkey)
	if len(m) == 0 {
		delete(c.entries, key)
	}
	return nil
}

// Keys returns a snapshot of all keys, in no particular order.
func (c *Cache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	return keys
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]any)
	c.mu.Unlock()
}

func containsValue(list []any, item any) bool {
	for _, it := range list {
		if reflect.DeepEqual(it, item) {
			return true
		}
	}
	return false
}
