package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Abraxas-365/relay-match/internal/scheduler"
	"github.com/Abraxas-365/relay-match/pkg/logx"
	"github.com/Abraxas-365/relay-match/recruitment/notification/notificationinfra"
	"github.com/Abraxas-365/relay-match/recruitment/notification/notificationsrv"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config aggregates application settings sourced from an optional file,
// a .env file and the environment, in increasing precedence.
type Config struct {
	Server       ServerConfig                 `mapstructure:"server"`
	Database     DatabaseConfig               `mapstructure:"database"`
	Redis        RedisConfig                  `mapstructure:"redis"`
	Log          logx.Config                  `mapstructure:"log"`
	Oracle       OracleConfig                 `mapstructure:"oracle"`
	Matching     MatchingConfig               `mapstructure:"matching"`
	Queue        QueueConfig                  `mapstructure:"queue"`
	SMTP         notificationinfra.SMTPConfig `mapstructure:"smtp"`
	Notification notificationsrv.Config       `mapstructure:"notification"`
	Tracking     TrackingConfig               `mapstructure:"tracking"`
	Export       ExportConfig                 `mapstructure:"export"`
	Schedule     scheduler.Config             `mapstructure:"schedule"`
}

type ServerConfig struct {
	Port        int           `mapstructure:"port"`
	CORSOrigins string        `mapstructure:"cors_origins"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Name         string `mapstructure:"name"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// DSN builds a lib/pq compatible connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderNone   = "none"
)

// OracleConfig selects the scoring model. Provider none always scores with
// the heuristic fallback.
type OracleConfig struct {
	Provider       string        `mapstructure:"provider"`
	Timeout        time.Duration `mapstructure:"timeout"`
	OpenAIAPIKey   string        `mapstructure:"openai_api_key"`
	OpenAIModel    string        `mapstructure:"openai_model"`
	GeminiAPIKey   string        `mapstructure:"gemini_api_key"`
	GeminiModel    string        `mapstructure:"gemini_model"`
	EmbeddingModel string        `mapstructure:"embedding_model"`
}

type MatchingConfig struct {
	BatchSize         int  `mapstructure:"batch_size"`
	Concurrency       int  `mapstructure:"concurrency"`
	TopN              int  `mapstructure:"top_n"`
	MinScore          int  `mapstructure:"min_score"`
	RecordHistory     bool `mapstructure:"record_history"`
	LookbackDays      int  `mapstructure:"lookback_days"`
	RecommendPoolSize int  `mapstructure:"recommend_pool_size"`
	RecommendLimit    int  `mapstructure:"recommend_limit"`
	Preselect         bool `mapstructure:"preselect"`
}

type QueueConfig struct {
	Name    string `mapstructure:"name"`
	Workers int    `mapstructure:"workers"`
}

type TrackingConfig struct {
	Secret  string        `mapstructure:"secret"`
	BaseURL string        `mapstructure:"base_url"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// ExportConfig enables CSV export of batch results when Bucket is set
type ExportConfig struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
	Region string `mapstructure:"region"`
}

// Load reads the configuration. path may be empty.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", "*")
	v.SetDefault("server.read_timeout", "30s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "relay")
	v.SetDefault("database.user", "relay")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)

	v.SetDefault("oracle.provider", ProviderOpenAI)
	v.SetDefault("oracle.timeout", "30s")
	v.SetDefault("oracle.openai_model", "gpt-4o-mini")
	v.SetDefault("oracle.gemini_model", "gemini-2.5-flash")
	v.SetDefault("oracle.embedding_model", "text-embedding-3-small")

	v.SetDefault("matching.batch_size", 100)
	v.SetDefault("matching.concurrency", 5)
	v.SetDefault("matching.top_n", 10)
	v.SetDefault("matching.min_score", 0)
	v.SetDefault("matching.record_history", true)
	v.SetDefault("matching.lookback_days", 90)
	v.SetDefault("matching.recommend_pool_size", 200)
	v.SetDefault("matching.recommend_limit", 10)
	v.SetDefault("matching.preselect", false)

	v.SetDefault("queue.name", "relay-match:notifications")
	v.SetDefault("queue.workers", 2)

	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.from", "matches@relay.local")
	v.SetDefault("smtp.from_name", "Relay Match")

	notify := notificationsrv.DefaultConfig()
	v.SetDefault("notification.app_url", notify.AppURL)
	v.SetDefault("notification.new_job_limit", notify.NewJobLimit)
	v.SetDefault("notification.employer_summary_limit", notify.EmployerSummaryLimit)
	v.SetDefault("notification.concurrency", notify.Concurrency)

	v.SetDefault("tracking.base_url", "http://localhost:8080")
	v.SetDefault("tracking.ttl", "2160h")

	v.SetDefault("export.prefix", "matching")

	sched := scheduler.DefaultConfig()
	v.SetDefault("schedule.enabled", sched.Enabled)
	v.SetDefault("schedule.timezone", sched.Timezone)
	v.SetDefault("schedule.full_batch", sched.FullBatch)
	v.SetDefault("schedule.incremental", sched.Incremental)
	v.SetDefault("schedule.daily_digest", sched.DailyDigest)
	v.SetDefault("schedule.weekly_digest", sched.WeeklyDigest)
}

// bindEnv maps the conventional unprefixed variables used by deployments
func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"server.port":           "PORT",
		"database.host":         "DB_HOST",
		"database.port":         "DB_PORT",
		"database.name":         "DB_NAME",
		"database.user":         "DB_USER",
		"database.password":     "DB_PASS",
		"database.sslmode":      "DB_SSLMODE",
		"redis.addr":            "REDIS_ADDR",
		"redis.password":        "REDIS_PASS",
		"log.level":             "LOG_LEVEL",
		"oracle.provider":       "ORACLE_PROVIDER",
		"oracle.openai_api_key": "OPENAI_API_KEY",
		"oracle.gemini_api_key": "GEMINI_API_KEY",
		"smtp.host":             "SMTP_HOST",
		"smtp.port":             "SMTP_PORT",
		"smtp.username":         "SMTP_USER",
		"smtp.password":         "SMTP_PASS",
		"smtp.from":             "SMTP_FROM",
		"notification.app_url":  "APP_URL",
		"tracking.secret":       "TRACKING_SECRET",
		"tracking.base_url":     "TRACKING_BASE_URL",
		"export.bucket":         "AWS_BUCKET",
		"export.region":         "AWS_REGION",
	}

	for key, env := range mappings {
		// the prefixed RELAY_* name stays bound alongside the plain one
		prefixed := "RELAY_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}

func validate(cfg Config) error {
	if cfg.Server.Port <= 0 {
		return errors.New("server port must be positive")
	}
	if cfg.Database.Host == "" {
		return errors.New("database host is required")
	}
	if cfg.Database.Port <= 0 {
		return errors.New("database port must be positive")
	}
	if cfg.Database.Name == "" {
		return errors.New("database name is required")
	}
	if cfg.Redis.Addr == "" {
		return errors.New("redis addr is required")
	}

	switch cfg.Oracle.Provider {
	case ProviderOpenAI:
		if cfg.Oracle.OpenAIAPIKey == "" {
			return errors.New("oracle provider openai requires an OpenAI API key")
		}
	case ProviderGemini:
		if cfg.Oracle.GeminiAPIKey == "" {
			return errors.New("oracle provider gemini requires a Gemini API key")
		}
	case ProviderNone:
	default:
		return fmt.Errorf("unknown oracle provider %q", cfg.Oracle.Provider)
	}

	if cfg.Matching.Concurrency < 1 || cfg.Matching.Concurrency > 64 {
		return errors.New("matching concurrency must be between 1 and 64")
	}
	if cfg.Matching.TopN < 1 || cfg.Matching.TopN > 1000 {
		return errors.New("matching top_n must be between 1 and 1000")
	}
	if cfg.Matching.MinScore < 0 || cfg.Matching.MinScore > 100 {
		return errors.New("matching min_score must be between 0 and 100")
	}
	if cfg.Queue.Workers < 1 {
		return errors.New("queue workers must be positive")
	}
	if cfg.Tracking.Secret == "" {
		return errors.New("tracking secret is required")
	}
	return nil
}
