package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, CacheBackendMemory, cfg.Cache.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 4, cfg.Analysis.Workers)
	assert.Equal(t, 0.5, cfg.Nutrition.PinchGrams)
	assert.Equal(t, time.Second, cfg.DedupWindow)

	match := cfg.Nutrition.MatchConfig()
	assert.Equal(t, 2, match.MaxExtraWords)
	assert.Equal(t, 15, match.MaxLengthDelta)
	assert.Equal(t, 5, match.CandidateLimit)
}

func TestLoadConfigEnvironment(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", "file:test.db")
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("APP_ANALYSIS_WORKERS", "8")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "file:test.db", cfg.Database.DSN)
	assert.Equal(t, CacheBackendRedis, cfg.Cache.Backend)
	assert.Equal(t, 8, cfg.Analysis.Workers)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
}

func TestLoadConfigFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "nutriplan.yaml")
	content := "nutrition:\n  densities:\n    miel: 1.42\n    aceite de coco: 0.91\n"
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))
	t.Setenv("APP_CONFIG_FILE", file)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	rules := cfg.Nutrition.DensityRules()
	require.Len(t, rules, 2)
	assert.Equal(t, "aceite de coco", rules[0].Match)
	assert.Equal(t, 1.42, rules[1].GramsPerML)
}

func TestValidateConfig(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "postgres")
	_, err := LoadConfig()
	assert.ErrorContains(t, err, "dsn is required")

	t.Setenv("DATABASE_DRIVER", "mongo")
	_, err = LoadConfig()
	assert.ErrorContains(t, err, "unknown database driver")
}

func TestMaskDSN(t *testing.T) {
	assert.Equal(t, "postgres://nutri:****@db:5432/ref", MaskDSN("postgres://nutri:secret@db:5432/ref"))
	assert.Equal(t, "host=db user=nutri password=**** dbname=ref", MaskDSN("host=db user=nutri password=secret dbname=ref"))
	assert.Equal(t, "file:ref.db", MaskDSN("file:ref.db"))
}
