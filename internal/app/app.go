package app

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	redisclient "github.com/yungbote/neurobridge-mastery/internal/clients/redis"
	"github.com/yungbote/neurobridge-mastery/internal/data/db"
	masteryrepo "github.com/yungbote/neurobridge-mastery/internal/data/repos/mastery"
	httpserver "github.com/yungbote/neurobridge-mastery/internal/http"
	httpH "github.com/yungbote/neurobridge-mastery/internal/http/handlers"
	"github.com/yungbote/neurobridge-mastery/internal/observability"
	"github.com/yungbote/neurobridge-mastery/internal/platform/envutil"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	DB       *db.Service
	Gateway  *masteryrepo.Gateway
	Redis    *goredis.Client
	Metrics  *observability.Metrics
	Services Services
	Server   *httpserver.Server

	otelShutdown func(context.Context) error
}

// NewLogger loads the env file, then builds the logger from LOG_MODE.
func NewLogger() (*logger.Logger, error) {
	envFile, envErr := LoadDotEnv()
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	if envErr != nil {
		log.Warn("env file not loaded", "error", envErr)
	} else if envFile != "" {
		log.Info("env file loaded", "path", envFile)
	}
	return log, nil
}

// OpenDB connects and, when enabled, migrates the schema.
func OpenDB(log *logger.Logger, cfg Config) (*db.Service, error) {
	svc, err := db.NewService(log, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("init db: %w", err)
	}
	if cfg.AutoMigrate {
		if err := db.AutoMigrateAll(svc.DB()); err != nil {
			_ = svc.Close()
			return nil, fmt.Errorf("db automigrate: %w", err)
		}
	}
	return svc, nil
}

func New(ctx context.Context, log *logger.Logger) (*App, error) {
	cfg, err := LoadConfig(log)
	if err != nil {
		return nil, err
	}
	a := &App{Log: log, Cfg: cfg}
	a.otelShutdown = observability.InitOTel(ctx, log, cfg.Otel)

	if a.DB, err = OpenDB(log, cfg); err != nil {
		a.Close()
		return nil, err
	}
	a.Gateway = masteryrepo.NewGateway(a.DB.DB(), log)

	var deps serviceDeps
	if cfg.RedisAddr != "" {
		if a.Redis, err = redisclient.Dial(ctx, cfg.RedisAddr); err != nil {
			a.Close()
			return nil, err
		}
		deps.locker = redisclient.NewKeyLocker(log, a.Redis, cfg.RedisLockTTL, cfg.RedisLockRetry)
		bus, err := redisclient.NewUpdateBus(log, a.Redis, cfg.RedisUpdateChannel)
		if err != nil {
			a.Close()
			return nil, err
		}
		deps.notifier = bus
		log.Info("redis enabled", "addr", cfg.RedisAddr, "channel", cfg.RedisUpdateChannel)
	} else {
		log.Info("redis disabled; using in-process key locks")
	}
	if cfg.MetricsEnabled {
		a.Metrics = observability.NewMetrics()
		deps.observer = a.Metrics
	}

	if a.Services, err = wireServices(log, cfg, a.Gateway, deps); err != nil {
		a.Close()
		return nil, err
	}

	sqlDB, err := a.DB.DB().DB()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	var recObserver httpH.RecommendationObserver
	if a.Metrics != nil {
		recObserver = a.Metrics
	}
	routerCfg := httpserver.RouterConfig{
		Log:            log,
		CORSOrigins:    cfg.CORSOrigins,
		Metrics:        a.Metrics,
		HealthHandler:  httpH.NewHealthHandler(sqlDB),
		MasteryHandler: httpH.NewMasteryHandler(log, a.Services.Mastery, recObserver),
	}
	if cfg.Otel.Enabled {
		routerCfg.ServiceName = cfg.Otel.ServiceName
	}
	a.Server = httpserver.NewServer(cfg.HTTPAddr, routerCfg)
	return a, nil
}

// Run serves HTTP until ctx is done.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Metrics != nil {
		a.Metrics.StartDBCollector(ctx, a.Log, a.DB.DB(), a.Cfg.MetricsScrapeInterval)
		if a.Redis != nil {
			a.Metrics.StartRedisCollector(ctx, a.Log, a.Redis, a.Cfg.MetricsScrapeInterval)
		}
	}
	a.Log.Info("http server listening", "addr", a.Cfg.HTTPAddr)
	return a.Server.Run(ctx)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		cancel()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
