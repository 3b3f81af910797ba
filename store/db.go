package store

import (
	"context"
	"fmt"
	"log/slog"
)

// DB composes the in-memory cache with one storage backend. Reads check the
// cache first and fetch on miss ("fetch on miss, cache forever"); writes go
// to the cache and then the backend, so a process always reads its own
// writes. The cache is not invalidated by other processes writing to the
// same backend; call Refresh after out-of-band changes.
//
// DB is constructed once at process start and injected into every consumer.
// There is no reconnect state: a connection lost mid-life surfaces as
// per-operation errors while reads keep serving cached data.
type DB struct {
	backend Backend
	cache   *Cache
	logger  *slog.Logger
}

// Open selects a backend from cfg (see Config.Kind), connects, and returns
// the facade. A connect failure is returned as-is: the caller is expected to
// treat it as fatal rather than fall back to a lesser backend.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	backend, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("store_open", "backend", backend.Name())
	return &DB{
		backend: backend,
		cache:   NewCache(),
		logger:  logger,
	}, nil
}

// newDB wires a facade around an already-open backend. Used by tests.
func newDB(backend Backend, logger *slog.Logger) *DB {
	if logger == nil {
		logger = slog.Default()
	}
	return &DB{backend: backend, cache: NewCache(), logger: logger}
}

// Get returns the value under key, or def when absent. On a cache miss the
// value is fetched from the backend and cached. A backend failure returns
// def along with the error; previously cached keys keep serving reads.
func (d *DB) Get(ctx context.Context, key string, def any) (any, error) {
	if v, ok := d.cache.Get(key); ok {
		return v, nil
	}
	v, found, err := d.backend.Get(ctx, key)
	if err != nil {
		d.logger.Warn("store_get_error", "key", key, "error", err.Error())
		return def, err
	}
	if !found {
		return def, nil
	}
	d.cache.Set(key, v)
	return v, nil
}

// Set stores value under key in the cache and persists it to the backend.
// The cache is updated even when persistence fails, so the current process
// keeps a consistent view; the error tells the caller durability was lost.
func (d *DB) Set(ctx context.Context, key string, value any) error {
	d.cache.Set(key, value)
	if err := d.backend.Set(ctx, key, value); err != nil {
		d.logger.Warn("store_set_error", "key", key, "error", err.Error())
		return err
	}
	return nil
}

// SetCached stores a value visible to this process only.
func (d *DB) SetCached(key string, value any) {
	d.cache.Set(key, value)
}

// Delete removes key from the cache and the backend.
func (d *DB) Delete(ctx context.Context, key string) error {
	d.cache.Delete(key)
	if err := d.backend.Delete(ctx, key); err != nil {
		d.logger.Warn("store_delete_error", "key", key, "error", err.Error())
		return err
	}
	return nil
}

// Rename moves the value under oldKey to newKey. The new key becomes visible
// before the old one disappears, so a concurrent reader never finds the
// value missing from both.
func (d *DB) Rename(ctx context.Context, oldKey, newKey string) error {
	v, err := d.Get(ctx, oldKey, nil)
	if err != nil {
		return err
	}
	if v == nil {
		return fmt.Errorf("%w: rename %q", ErrNoSuchKey, oldKey)
	}
	if err := d.Set(ctx, newKey, v); err != nil {
		return err
	}
	return d.Delete(ctx, oldKey)
}

// Refresh drops the cache and re-reads every key from the backend. Used
// after manual or out-of-band changes to the backend. Keys that fail to load
// are logged and skipped; the first such error is returned after the sweep.
func (d *DB) Refresh(ctx context.Context) error {
	keys, err := d.backend.Keys(ctx)
	if err != nil {
		d.logger.Warn("store_refresh_error", "error", err.Error())
		return err
	}
	d.cache.Clear()

	var firstErr error
	for _, key := range keys {
		v, found, err := d.backend.Get(ctx, key)
		if err != nil {
			d.logger.Warn("store_refresh_key_error", "key", key, "error", err.Error())
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if found {
			d.cache.Set(key, v)
		}
	}
	return firstErr
}

// Keys returns every key currently stored in the backend.
func (d *DB) Keys(ctx context.Context) ([]string, error) {
	return d.backend.Keys(ctx)
}

// Usage returns the backend's approximate storage footprint.
func (d *DB) Usage(ctx context.Context) (string, error) {
	return d.backend.Usage(ctx)
}

// BackendName identifies the selected storage engine.
func (d *DB) BackendName() string {
	return d.backend.Name()
}

// CachedLen reports how many keys the cache currently holds.
func (d *DB) CachedLen() int {
	return d.cache.Len()
}

// Close releases the backend connection. The facade must not be used after.
func (d *DB) Close() error {
	return d.backend.Close()
}
