package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"

	"nutriplan/internal/core/nutrition"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// 參考資料儲存後端
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// 快取後端
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// Config 應用配置
type Config struct {
	App         AppConfig       `mapstructure:"app"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Cache       CacheConfig     `mapstructure:"cache"`
	Redis       RedisConfig     `mapstructure:"redis"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	Analysis    AnalysisConfig  `mapstructure:"analysis"`
	Nutrition   NutritionConfig `mapstructure:"nutrition"`
	Importer    ImporterConfig  `mapstructure:"importer"`
	DedupWindow time.Duration   `mapstructure:"dedup_window"`
	LogLevel    string          `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
}

// DatabaseConfig 營養參考資料庫設定
type DatabaseConfig struct {
	Driver      string        `mapstructure:"driver"`
	DSN         string        `mapstructure:"dsn"`
	SeedFile    string        `mapstructure:"seed_file"`
	AutoMigrate bool          `mapstructure:"auto_migrate"`
	MaxRetries  int           `mapstructure:"max_retries"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
}

// CacheConfig 緩存配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Backend         string        `mapstructure:"backend"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RedisConfig Redis 連線設定
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// AnalysisConfig 計畫分析設定
type AnalysisConfig struct {
	Workers        int           `mapstructure:"workers"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// NutritionConfig 比對與換算參數
type NutritionConfig struct {
	PinchGrams          float64            `mapstructure:"pinch_grams"`
	TokenMaxExtraWords  int                `mapstructure:"token_max_extra_words"`
	TokenMaxLengthDelta int                `mapstructure:"token_max_length_delta"`
	TokenCandidateLimit int                `mapstructure:"token_candidate_limit"`
	Densities           map[string]float64 `mapstructure:"densities"`
}

// MatchConfig 轉為比對參數
func (n NutritionConfig) MatchConfig() nutrition.MatchConfig {
	cfg := nutrition.DefaultMatchConfig()
	cfg.MaxExtraWords = n.TokenMaxExtraWords
	cfg.MaxLengthDelta = n.TokenMaxLengthDelta
	cfg.CandidateLimit = n.TokenCandidateLimit
	return cfg
}

// DensityRules 設定檔中的密度，較長（較具體）的名稱先比對
func (n NutritionConfig) DensityRules() []nutrition.DensityRule {
	rules := make([]nutrition.DensityRule, 0, len(n.Densities))
	for match, density := range n.Densities {
		rules = append(rules, nutrition.DensityRule{Match: match, GramsPerML: density})
	}
	sort.Slice(rules, func(i, j int) bool {
		if len(rules[i].Match) != len(rules[j].Match) {
			return len(rules[i].Match) > len(rules[j].Match)
		}
		return rules[i].Match < rules[j].Match
	})
	return rules
}

// ImporterConfig 遠端目錄匯入
type ImporterConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoadConfig 載入設定：.env、config.yaml（可選）與 APP_ 開頭的環境變數
func LoadConfig() (*Config, error) {
	// 加載 .env 文件，不存在時略過
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	// 設定環境變數前綴
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 綁定環境變量
	_ = v.BindEnv("database.driver", "DATABASE_DRIVER")
	_ = v.BindEnv("database.dsn", "DATABASE_DSN", "DATABASE_URL")
	_ = v.BindEnv("database.seed_file", "SEED_FILE")
	_ = v.BindEnv("cache.enabled", "CACHE_ENABLED")
	_ = v.BindEnv("cache.backend", "CACHE_BACKEND")
	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	_ = v.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	_ = v.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	_ = v.BindEnv("importer.url", "IMPORTER_URL")
	_ = v.BindEnv("dedup_window", "DEDUP_WINDOW")
	_ = v.BindEnv("log_level", "LOG_LEVEL")

	// 設定檔名稱和路徑
	if file := os.Getenv("APP_CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// MaskDSN 遮罩連線字串中的密碼
func MaskDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		if i := strings.Index(dsn, "password="); i >= 0 {
			end := strings.IndexByte(dsn[i:], ' ')
			if end < 0 {
				return dsn[:i] + "password=****"
			}
			return dsn[:i] + "password=****" + dsn[i+end:]
		}
		return dsn
	}
	creds := dsn[scheme+3 : at]
	if user, _, ok := strings.Cut(creds, ":"); ok {
		return dsn[:scheme+3] + user + ":****" + dsn[at:]
	}
	return dsn
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", true)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "nutriplan")

	// 伺服器設定
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.max_body_bytes", 2*1024*1024) // 2MB

	// 參考資料庫
	v.SetDefault("database.driver", DriverMemory)
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.seed_file", "data/reference_seed.yaml")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.max_retries", 5)
	v.SetDefault("database.retry_delay", "2s")

	// 快取設定
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.backend", CacheBackendMemory)
	v.SetDefault("cache.max_size", 1000)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_interval", "10m")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "nutriplan")

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "1m")

	v.SetDefault("analysis.workers", 4)
	v.SetDefault("analysis.request_timeout", "30s")

	v.SetDefault("nutrition.pinch_grams", nutrition.DefaultPinchGrams)
	v.SetDefault("nutrition.token_max_extra_words", 2)
	v.SetDefault("nutrition.token_max_length_delta", 15)
	v.SetDefault("nutrition.token_candidate_limit", 5)

	v.SetDefault("importer.timeout", "30s")

	v.SetDefault("dedup_window", "1s")
	v.SetDefault("log_level", "info")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	switch config.Database.Driver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if config.Database.DSN == "" {
			return fmt.Errorf("database dsn is required for driver %q", config.Database.Driver)
		}
	default:
		return fmt.Errorf("unknown database driver %q", config.Database.Driver)
	}

	if config.Cache.Enabled {
		if config.Cache.Backend != CacheBackendMemory && config.Cache.Backend != CacheBackendRedis {
			return fmt.Errorf("unknown cache backend %q", config.Cache.Backend)
		}
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if config.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
	}

	if config.Analysis.Workers <= 0 {
		return fmt.Errorf("invalid analysis workers")
	}
	if config.Nutrition.PinchGrams <= 0 {
		return fmt.Errorf("invalid pinch grams")
	}
	for match, density := range config.Nutrition.Densities {
		if density <= 0 {
			return fmt.Errorf("invalid density for %q", match)
		}
	}

	return nil
}
