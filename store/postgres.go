package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// postgresRow is the single key-value table: TEXT primary key, JSONB value.
type postgresRow struct {
	Key   string `gorm:"column:key;primaryKey"`
	Value string `gorm:"column:value;type:jsonb;not null"`
}

func (postgresRow) TableName() string { return "tgbot" }

type postgresBackend struct {
	gdb *gorm.DB
}

func openPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*postgresBackend, error) {
	gdb, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		return nil, fmt.Errorf("%w: open postgres: %v", ErrBackend, err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: postgres pool: %v", ErrBackend, err)
	}
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.connectTimeout())
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%w: postgres ping: %v", ErrBackend, err)
	}

	if err := gdb.WithContext(ctx).AutoMigrate(&postgresRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%w: postgres migrate: %v", ErrBackend, err)
	}

	logger.Info("postgres_open")
	return &postgresBackend{gdb: gdb}, nil
}

func (p *postgresBackend) Name() string { return "PostgreSQL" }

func (p *postgresBackend) Set(ctx context.Context, key string, value any) error {
	text, err := encodeValue(value)
	if err != nil {
		return err
	}
	row := postgresRow{Key: key, Value: text}
	err = p.gdb.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("%w: postgres set %q: %v", ErrBackend, key, err)
	}
	return nil
}

func (p *postgresBackend) Get(ctx context.Context, key string) (any, bool, error) {
	var row postgresRow
	err := p.gdb.WithContext(ctx).Take(&row, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: postgres get %q: %v", ErrBackend, key, err)
	}
	return decodeValue(row.Value), true, nil
}

func (p *postgresBackend) Delete(ctx context.Context, key string) error {
	if err := p.gdb.WithContext(ctx).Delete(&postgresRow{}, "key = ?", key).Error; err != nil {
		return fmt.Errorf("%w: postgres delete %q: %v", ErrBackend, key, err)
	}
	return nil
}

func (p *postgresBackend) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	if err := p.gdb.WithContext(ctx).Model(&postgresRow{}).Pluck("key", &keys).Error; err != nil {
		return nil, fmt.Errorf("%w: postgres keys: %v", ErrBackend, err)
	}
	return keys, nil
}

func (p *postgresBackend) Usage(ctx context.Context) (string, error) {
	var size string
	err := p.gdb.WithContext(ctx).
		Raw("SELECT pg_size_pretty(pg_database_size(current_database()))").
		Scan(&size).Error
	if err != nil {
		return "", fmt.Errorf("%w: postgres usage: %v", ErrBackend, err)
	}
	return size, nil
}

func (p *postgresBackend) Close() error {
	sqlDB, err := p.gdb.DB()
	if err != nil {
		return nil
	}
	return sqlDB.Close()
}
