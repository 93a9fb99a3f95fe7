// Package app 依設定組裝參考資料、快取與計畫服務，供 HTTP 服務與命令列共用
package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"nutriplan/internal/core/cache"
	"nutriplan/internal/core/diag"
	"nutriplan/internal/core/nutrition"
	"nutriplan/internal/core/plan"
	"nutriplan/internal/infrastructure/config"
	"nutriplan/internal/infrastructure/database"
	"nutriplan/internal/infrastructure/repository"
	"nutriplan/internal/infrastructure/seed"
	"nutriplan/internal/pkg/common"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ReferenceBackend 可讀寫的參考資料
type ReferenceBackend interface {
	nutrition.ReferenceStore
	nutrition.Writer
}

// App 組裝完成的服務
type App struct {
	Config     *config.Config
	References ReferenceBackend
	Cache      cache.Store
	Resolver   *nutrition.Resolver
	Plans      *plan.Service
	Observer   diag.Observer

	db *gorm.DB
}

// New 依設定建立服務；資料庫為空時寫入種子目錄
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg, Observer: diag.ZapObserver()}

	if err := a.openReferences(ctx); err != nil {
		return nil, err
	}

	store, err := cache.New(cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}
	a.Cache = store

	converter := nutrition.NewConverter(a.References,
		nutrition.WithDensities(cfg.Nutrition.DensityRules()...),
		nutrition.WithPinchGrams(cfg.Nutrition.PinchGrams),
	)
	a.Resolver = nutrition.NewResolver(a.References,
		nutrition.WithConverter(converter),
		nutrition.WithMatchConfig(cfg.Nutrition.MatchConfig()),
		nutrition.WithObserver(a.Observer),
	)
	a.Plans = plan.NewService(a.Resolver, plan.Options{
		Workers:  cfg.Analysis.Workers,
		Observer: a.Observer,
		Cache:    a.Cache,
	})

	common.LogInfo("服務已初始化",
		zap.String("database", cfg.Database.Driver),
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.Int("workers", cfg.Analysis.Workers),
	)
	return a, nil
}

func (a *App) openReferences(ctx context.Context) error {
	cfg := a.Config
	if cfg.Database.Driver == config.DriverMemory {
		store := nutrition.NewMemoryStore()
		a.References = store
		return a.seedIfEmpty(ctx, func() (int64, error) { return int64(store.Len()), nil })
	}

	db, err := database.Open(ctx, &cfg.Database, cfg.App.Debug)
	if err != nil {
		return err
	}
	a.db = db
	if cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(db, repository.Models()...); err != nil {
			a.Close()
			return err
		}
	}
	store := repository.NewGormStore(db)
	a.References = store
	if err := a.seedIfEmpty(ctx, func() (int64, error) { return store.Count(ctx) }); err != nil {
		a.Close()
		return err
	}
	return nil
}

// seedIfEmpty 參考資料為空且設定了種子檔時寫入；檔案不存在只記錄警告
func (a *App) seedIfEmpty(ctx context.Context, count func() (int64, error)) error {
	path := a.Config.Database.SeedFile
	if path == "" {
		return nil
	}
	n, err := count()
	if err != nil {
		return fmt.Errorf("count references: %w", err)
	}
	if n > 0 {
		return nil
	}

	cat, err := seed.LoadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		common.LogWarn("種子檔不存在，參考資料為空", zap.String("seed_file", path))
		return nil
	}
	if err != nil {
		return err
	}
	_, err = seed.Apply(ctx, a.References, cat)
	return err
}

// Ping 檢查參考資料與快取
func (a *App) Ping(ctx context.Context) error {
	if p, ok := a.References.(interface{ Ping(context.Context) error }); ok {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("reference store: %w", err)
		}
	}
	if a.Cache != nil {
		if err := a.Cache.Ping(ctx); err != nil {
			return fmt.Errorf("cache: %w", err)
		}
	}
	return nil
}

// Close 釋放資料庫與快取連線
func (a *App) Close() {
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			common.LogWarn("關閉快取失敗", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := database.Close(a.db); err != nil {
			common.LogWarn("關閉資料庫失敗", zap.Error(err))
		}
	}
}
