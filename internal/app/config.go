package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/yungbote/neurobridge-mastery/internal/data/db"
	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
	"github.com/yungbote/neurobridge-mastery/internal/modules/mastery"
	"github.com/yungbote/neurobridge-mastery/internal/observability"
	"github.com/yungbote/neurobridge-mastery/internal/platform/envutil"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

type Config struct {
	LogMode     string
	HTTPAddr    string
	CORSOrigins []string

	DB          db.Config
	AutoMigrate bool

	RedisAddr          string
	RedisLockTTL       time.Duration
	RedisLockRetry     time.Duration
	RedisUpdateChannel string

	KCParamsFile string
	BktDefaults  types.BktParameters
	Thresholds   mastery.Thresholds

	MetricsEnabled        bool
	MetricsScrapeInterval time.Duration

	Otel observability.OtelConfig
}

// LoadDotEnv loads ENV_FILE (default .env) when it exists. Variables already
// set in the environment win.
func LoadDotEnv() (string, error) {
	path := envutil.String("ENV_FILE", ".env")
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	if err := godotenv.Load(path); err != nil {
		return "", fmt.Errorf("load %s: %w", path, err)
	}
	return path, nil
}

func LoadConfig(log *logger.Logger) (Config, error) {
	defaults := types.DefaultBktParameters()
	cfg := Config{
		LogMode:     envutil.String("LOG_MODE", "development"),
		HTTPAddr:    envutil.String("HTTP_ADDR", ":8080"),
		CORSOrigins: splitList(envutil.String("CORS_ORIGINS", "")),
		DB: db.Config{
			Driver:           envutil.String("DB_DRIVER", db.DriverPostgres),
			PostgresHost:     envutil.String("POSTGRES_HOST", "localhost"),
			PostgresPort:     envutil.String("POSTGRES_PORT", "5432"),
			PostgresUser:     envutil.String("POSTGRES_USER", "postgres"),
			PostgresPassword: envutil.String("POSTGRES_PASSWORD", ""),
			PostgresName:     envutil.String("POSTGRES_NAME", "neurobridge_mastery"),
			PostgresSSLMode:  envutil.String("POSTGRES_SSLMODE", "disable"),
			SQLitePath:       envutil.String("SQLITE_PATH", "mastery.db"),
			MaxOpenConns:     envutil.Int("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:     envutil.Int("DB_MAX_IDLE_CONNS", 5),
			SlowQuery:        envutil.Duration("DB_SLOW_QUERY", time.Second),
		},
		AutoMigrate:        envutil.Bool("DB_AUTO_MIGRATE", true),
		RedisAddr:          envutil.String("REDIS_ADDR", ""),
		RedisLockTTL:       envutil.Duration("REDIS_LOCK_TTL", 30*time.Second),
		RedisLockRetry:     envutil.Duration("REDIS_LOCK_RETRY", 25*time.Millisecond),
		RedisUpdateChannel: envutil.String("REDIS_UPDATE_CHANNEL", "mastery.updates"),
		KCParamsFile:       envutil.String("KC_PARAMS_FILE", ""),
		BktDefaults: types.BktParameters{
			PInitial: envutil.Float("BKT_DEFAULT_P_INITIAL", defaults.PInitial),
			PTransit: envutil.Float("BKT_DEFAULT_P_TRANSIT", defaults.PTransit),
			PSlip:    envutil.Float("BKT_DEFAULT_P_SLIP", defaults.PSlip),
			PGuess:   envutil.Float("BKT_DEFAULT_P_GUESS", defaults.PGuess),
		},
		Thresholds:            mastery.ThresholdsFromEnv(),
		MetricsEnabled:        envutil.Bool("METRICS_ENABLED", false),
		MetricsScrapeInterval: envutil.Duration("METRICS_SCRAPE_INTERVAL", 15*time.Second),
		Otel:                  observability.OtelConfigFromEnv(),
	}
	if err := cfg.BktDefaults.Validate(); err != nil {
		return Config{}, fmt.Errorf("BKT_DEFAULT_*: %w", err)
	}
	if log != nil {
		log.Info("config loaded",
			"http_addr", cfg.HTTPAddr,
			"db_driver", cfg.DB.Driver,
			"redis", cfg.RedisAddr != "",
			"kc_params_file", cfg.KCParamsFile,
			"metrics", cfg.MetricsEnabled,
			"otel", cfg.Otel.Enabled,
		)
	}
	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
