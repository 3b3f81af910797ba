package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// sqliteRow is the single key-value table. Values are JSON-encoded text.
type sqliteRow struct {
	Key   string `gorm:"column:key;primaryKey"`
	Value string `gorm:"column:value;type:text"`
}

func (sqliteRow) TableName() string { return "tgbot" }

// sqliteBackend stores everything in one local file. Safe only for
// single-process access; the busy timeout covers concurrent readers within
// the process.
type sqliteBackend struct {
	gdb  *gorm.DB
	path string
}

func openSQLite(ctx context.Context, cfg Config, logger *slog.Logger) (*sqliteBackend, error) {
	path, err := resolveSQLitePath(cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve sqlite path: %v", ErrBackend, err)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite %s: %v", ErrBackend, path, err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: sqlite pool: %v", ErrBackend, err)
	}
	// Single writer; SQLite serializes anyway.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := gdb.WithContext(ctx).AutoMigrate(&sqliteRow{}); err != nil {
		return nil, fmt.Errorf("%w: sqlite migrate: %v", ErrBackend, err)
	}

	logger.Info("sqlite_open", "path", path)
	return &sqliteBackend{gdb: gdb, path: path}, nil
}

// resolveSQLitePath picks the database file. Precedence: explicit path, an
// existing $HOME/.tgbot/tgbot.sqlite, an existing ./tgbot.sqlite, then a
// fresh $HOME/.tgbot/tgbot.sqlite.
func resolveSQLitePath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path != "" {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	homeDir := filepath.Join(home, ".tgbot")
	homeDB := filepath.Join(homeDir, "tgbot.sqlite")
	localDB := filepath.Clean("./tgbot.sqlite")

	if _, err := os.Stat(homeDB); err == nil {
		return homeDB, nil
	}
	if _, err := os.Stat(localDB); err == nil {
		return localDB, nil
	}
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		return "", err
	}
	return homeDB, nil
}

func (s *sqliteBackend) Name() string { return "SQLite" }

func (s *sqliteBackend) Set(ctx context.Context, key string, value any) error {
	text, err := encodeValue(value)
	if err != nil {
		return err
	}
	row := sqliteRow{Key: key, Value: text}
	err = s.gdb.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("%w: sqlite set %q: %v", ErrBackend, key, err)
	}
	return nil
}

func (s *sqliteBackend) Get(ctx context.Context, key string) (any, bool, error) {
	var row sqliteRow
	err := s.gdb.WithContext(ctx).Take(&row, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: sqlite get %q: %v", ErrBackend, key, err)
	}
	return decodeValue(row.Value), true, nil
}

func (s *sqliteBackend) Delete(ctx context.Context, key string) error {
	if err := s.gdb.WithContext(ctx).Delete(&sqliteRow{}, "key = ?", key).Error; err != nil {
		return fmt.Errorf("%w: sqlite delete %q: %v", ErrBackend, key, err)
	}
	return nil
}

func (s *sqliteBackend) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	if err := s.gdb.WithContext(ctx).Model(&sqliteRow{}).Pluck("key", &keys).Error; err != nil {
		return nil, fmt.Errorf("%w: sqlite keys: %v", ErrBackend, err)
	}
	return keys, nil
}

func (s *sqliteBackend) Usage(ctx context.Context) (string, error) {
	var pageCount, pageSize int64
	if err := s.gdb.WithContext(ctx).Raw("PRAGMA page_count").Scan(&pageCount).Error; err != nil {
		return "", fmt.Errorf("%w: sqlite usage: %v", ErrBackend, err)
	}
	if err := s.gdb.WithContext(ctx).Raw("PRAGMA page_size").Scan(&pageSize).Error; err != nil {
		return "", fmt.Errorf("%w: sqlite usage: %v", ErrBackend, err)
	}
	return humanize.IBytes(uint64(pageCount * pageSize)), nil
}

func (s *sqliteBackend) Close() error {
	sqlDB, err := s.gdb.DB()
	if err != nil {
		return nil
	}
	return sqlDB.Close()
}
