// Package database 依設定開啟營養參考資料庫連線
package database

import (
	"context"
	"fmt"
	"time"

	"nutriplan/internal/infrastructure/config"
	"nutriplan/internal/pkg/common"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const maxRetryDelay = 10 * time.Second

// Open 連線資料庫；連線或 ping 失敗時以指數退避重試
func Open(ctx context.Context, cfg *config.DatabaseConfig, debug bool) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	level := logger.Warn
	if debug {
		level = logger.Info
	}
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(level)}

	attempts := max(cfg.MaxRetries, 1)
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = time.Second
	}

	for i := 1; i <= attempts; i++ {
		var db *gorm.DB
		db, err = gorm.Open(dialector, gormCfg)
		if err == nil {
			if err = ping(ctx, db); err == nil {
				common.LogInfo("資料庫已連線",
					zap.String("driver", cfg.Driver),
					zap.String("dsn", config.MaskDSN(cfg.DSN)),
					zap.Int("attempt", i),
				)
				return db, nil
			}
			closeQuietly(db)
		}

		common.LogWarn("資料庫連線失敗",
			zap.String("driver", cfg.Driver),
			zap.Int("attempt", i),
			zap.Error(err),
		)
		if i == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("database connect canceled: %w", ctx.Err())
		case <-time.After(delay):
		}
		delay = min(delay*2, maxRetryDelay)
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", attempts, err)
}

func dialectorFor(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return postgres.Open(cfg.DSN), nil
	case config.DriverSQLite:
		return sqlite.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func closeQuietly(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// AutoMigrate 建立或更新資料表
func AutoMigrate(db *gorm.DB, models ...any) error {
	common.LogInfo("執行資料庫遷移", zap.Int("models", len(models)))
	for _, model := range models {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model: %w", err)
		}
	}
	return nil
}

// Close 關閉連線
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
