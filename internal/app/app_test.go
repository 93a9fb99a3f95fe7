package app

import (
	"context"
	"testing"
	"time"

	"nutriplan/internal/infrastructure/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedFile = "../../data/reference_seed.yaml"

func testConfig(driver, dsn string) *config.Config {
	return &config.Config{
		Database: config.DatabaseConfig{Driver: driver, DSN: dsn, SeedFile: seedFile, AutoMigrate: true, MaxRetries: 1},
		Cache:    config.CacheConfig{Enabled: true, Backend: config.CacheBackendMemory, MaxSize: 10, TTL: time.Minute},
		Analysis: config.AnalysisConfig{Workers: 2},
		Nutrition: config.NutritionConfig{
			PinchGrams:          0.5,
			TokenMaxExtraWords:  2,
			TokenMaxLengthDelta: 15,
			TokenCandidateLimit: 5,
			Densities:           map[string]float64{"miel": 1.42},
		},
	}
}

func TestNewMemorySeedsReferences(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(config.DriverMemory, ""))
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Ping(ctx))

	// 1 cucharada de aceite de oliva = 13.5 g
	res := a.Resolver.Resolve(ctx, "aceite de oliva", 1, "cucharada")
	assert.Equal(t, "Aceite de oliva", res.Reference)
	assert.Equal(t, 13.5, res.ConvertedQuantity)
	assert.Equal(t, 119.34, res.Nutrients.Calories)
}

func TestNewSQLiteSeedsOnce(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(config.DriverSQLite, "file:app_test?mode=memory&cache=shared")

	a, err := New(ctx, cfg)
	require.NoError(t, err)
	defer a.Close()
	require.NoError(t, a.Ping(ctx))

	res := a.Resolver.Resolve(ctx, "Huevos", 2, "unidad")
	assert.Equal(t, "Huevo", res.Reference)
	assert.Equal(t, 100.0, res.ConvertedQuantity)
	assert.Equal(t, 155.0, res.Nutrients.Calories)
}

func TestNewMissingSeedFile(t *testing.T) {
	cfg := testConfig(config.DriverMemory, "")
	cfg.Database.SeedFile = "does-not-exist.yaml"
	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	res := a.Resolver.Resolve(context.Background(), "Huevo", 1, "unidad")
	assert.Empty(t, res.Reference)
}
