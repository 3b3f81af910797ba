// Package store implements the bot's key-value persistence layer: an
// in-memory cache in front of one of three interchangeable storage backends
// (embedded SQLite, PostgreSQL, MongoDB), composed behind the DB facade.
package store

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Backend is the uniform contract shared by the three storage engines.
// Implementations ensure their schema at open time, translate every driver
// failure into an error wrapping ErrBackend, and keep Close idempotent.
type Backend interface {
	// Name identifies the engine ("SQLite", "PostgreSQL", "MongoDB").
	Name() string
	// Set serializes value and upserts the row/document under key.
	Set(ctx context.Context, key string, value any) error
	// Get fetches and deserializes the value under key. The second result
	// distinguishes an absent key from a stored null.
	Get(ctx context.Context, key string) (any, bool, error)
	Delete(ctx context.Context, key string) error
	// Keys returns every stored key, in no guaranteed order.
	Keys(ctx context.Context) ([]string, error)
	// Usage returns the approximate storage footprint, human-readable.
	Usage(ctx context.Context) (string, error)
	Close() error
}

// Config selects and parameterizes a backend.
type Config struct {
	// MongoURI selects the MongoDB backend when non-empty.
	MongoURI string
	// DatabaseURL selects the PostgreSQL backend when non-empty and no
	// MongoURI is set.
	DatabaseURL string
	// SQLitePath overrides the embedded database location. Empty means the
	// default resolution order (see resolveSQLitePath).
	SQLitePath string
	// MongoDatabase names the Mongo database. Defaults to "tgbot".
	MongoDatabase string
	// ConnectTimeout bounds backend connection setup. Defaults to 10s.
	ConnectTimeout time.Duration
}

const (
	defaultConnectTimeout = 10 * time.Second
	defaultMongoDatabase  = "tgbot"
)

func (c Config) connectTimeout() time.Duration {
	if c.ConnectTimeout > 0 {
		return c.ConnectTimeout
	}
	return defaultConnectTimeout
}

func (c Config) mongoDatabase() string {
	if s := strings.TrimSpace(c.MongoDatabase); s != "" {
		return s
	}
	return defaultMongoDatabase
}

// Kind names a backend choice.
type Kind string

const (
	KindMongo    Kind = "mongodb"
	KindPostgres Kind = "postgresql"
	KindSQLite   Kind = "sqlite"
)

// Kind reports which backend the configuration selects: MongoDB over
// PostgreSQL over the embedded SQLite file. This is a static priority, not a
// fallback chain; a configured backend that cannot connect is a fatal error,
// never a silent downgrade to ephemeral local storage.
func (c Config) Kind() Kind {
	if strings.TrimSpace(c.MongoURI) != "" {
		return KindMongo
	}
	if strings.TrimSpace(c.DatabaseURL) != "" {
		return KindPostgres
	}
	return KindSQLite
}

func openBackend(ctx context.Context, cfg Config, logger *slog.Logger) (Backend, error) {
	switch cfg.Kind() {
	case KindMongo:
		return openMongo(ctx, cfg, logger)
	case KindPostgres:
		return openPostgres(ctx, cfg, logger)
	default:
		return openSQLite(ctx, cfg, logger)
	}
}
