// Package bootstrap wires configuration, storage and services into an App
// shared by the server and the CLI.
package bootstrap

import (
	"errors"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/updateme/engine/configs"
	"github.com/updateme/engine/internal/application/providers"
	"github.com/updateme/engine/internal/application/services"
	"github.com/updateme/engine/internal/core/ports"
	"github.com/updateme/engine/internal/infrastructure/db"
	"github.com/updateme/engine/internal/infrastructure/email"
	"github.com/updateme/engine/internal/infrastructure/health"
	"github.com/updateme/engine/internal/infrastructure/httpserver"
	"github.com/updateme/engine/internal/infrastructure/metrics"
	"github.com/updateme/engine/internal/infrastructure/redis"
	"github.com/updateme/engine/internal/infrastructure/repositories"
)

// App holds the wired services.
type App struct {
	Config     *configs.Config
	Logger     *logrus.Logger
	Registry   *providers.Registry
	CacheStore *services.CacheService
	Summaries  *services.SummaryService
	Newsletter *services.NewsletterService
	Deliveries ports.DeliveryLogService
	OpsAuth    *services.OpsAuthService
	Scheduler  *services.Scheduler
	Health     []ports.HealthChecker

	closers []func() error
}

// Options adjust wiring for callers other than the server.
type Options struct {
	// DryRun logs emails instead of sending them.
	DryRun bool
	// Registerer receives engine metrics; nil uses the default registerer.
	Registerer prometheus.Registerer
	// SkipMigrations leaves the schema untouched.
	SkipMigrations bool
}

// New connects to every configured store and builds the services. Call Close
// when done.
func New(cfg *configs.Config, logger *logrus.Logger, opts Options) (_ *App, err error) {
	app := &App{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	database, err := db.NewDatabaseWithConfig(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.closers = append(app.closers, database.Close)
	app.Health = append(app.Health, health.NewDBHealthChecker(database))
	logger.Info("Connected to database successfully")

	if !opts.SkipMigrations {
		if err := database.Migrate(cfg.Database.MigrationsPath); err != nil {
			logger.WithError(err).Warn("Failed to run migrations")
		}
	}

	var (
		redisClient *goredis.Client
		hot         ports.Cache
	)
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewRedisClient(&cfg.Redis)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, redisClient.Close)
		app.Health = append(app.Health, health.NewRedisHealthChecker(redisClient))
		hot = redis.NewRedisCache(redisClient, "updateme")
		logger.Info("Connected to Redis successfully")
	}

	loc, err := time.LoadLocation(cfg.Cache.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid cache timezone: %w", err)
	}

	cacheRepo, err := app.cacheRepository(cfg, database, hot, loc)
	if err != nil {
		return nil, err
	}
	app.CacheStore = services.NewCacheService(cacheRepo, logger, services.WithLocation(loc))

	var subscribers ports.SubscriberRepository = repositories.NewSubscriberRepository(database, logger)
	if hot != nil {
		subscribers = repositories.NewCachingSubscriberRepository(subscribers, hot, 5*time.Minute)
	}

	var limiter ports.RateLimiterService
	if cfg.RateLimit.Enabled && redisClient != nil {
		limiter = services.NewRateLimiterService(repositories.NewRateLimitRedisRepository(redisClient), &services.RateLimiterConfig{
			DefaultCallsPerMinute:  cfg.RateLimit.DefaultCallsPerMinute,
			ProviderCallsPerMinute: cfg.RateLimit.ProviderLimits(),
			BurstMultiplier:        cfg.RateLimit.BurstMultiplier,
			Window:                 cfg.RateLimit.Window,
			KeyPrefix:              cfg.RateLimit.KeyPrefix,
		}, logger)
	}

	engineMetrics := metrics.NewEngineMetrics("updateme", opts.Registerer)

	defaults, err := configs.LoadSearchDefaults(cfg.Search.DefaultsFile)
	if err != nil {
		return nil, err
	}

	app.Registry, err = NewRegistry(cfg.LLM, providers.Deps{
		Search:        NewSearchProvider(cfg.Search, defaults, logger),
		Cache:         app.CacheStore,
		Subscribers:   subscribers,
		Limiter:       limiter,
		Metrics:       engineMetrics,
		Logger:        logger,
		FlightTimeout: cfg.LLM.CandidateTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	app.Summaries = services.NewSummaryService(app.Registry, app.CacheStore, subscribers, engineMetrics, &services.SummaryConfig{
		CandidateTimeout: cfg.LLM.CandidateTimeout,
		LookbackDays:     cfg.LLM.LookbackDays,
	}, logger)

	app.Deliveries = services.NewDeliveryLogService(repositories.NewDeliveryRepository(database, logger), logger)

	sender, err := newSender(cfg.Email, opts.DryRun, logger)
	if err != nil {
		return nil, err
	}
	app.Newsletter = services.NewNewsletterService(app.Summaries, subscribers, sender, app.Deliveries, engineMetrics, &services.NewsletterConfig{
		Workers:   cfg.Newsletter.Workers,
		SendDelay: cfg.Newsletter.SendDelay,
	}, logger)

	app.OpsAuth = services.NewOpsAuthService(cfg.Ops.JWTSecret, cfg.Ops.Issuer)
	app.Scheduler = services.NewScheduler(app.Newsletter, app.CacheStore, &services.SchedulerConfig{
		DeliveryInterval: cfg.Scheduler.DeliveryInterval,
		DaysInterval:     cfg.Newsletter.DaysInterval,
		SweepInterval:    cfg.Scheduler.SweepInterval,
		DaysToKeep:       cfg.Cache.DaysToKeep,
		JobTimeout:       cfg.Scheduler.JobTimeout,
	}, logger)

	return app, nil
}

// cacheRepository returns the generation cache store for the configured backend,
// with the redis layer in front when enabled.
func (a *App) cacheRepository(cfg *configs.Config, database *db.Database, hot ports.Cache, loc *time.Location) (ports.CacheRepository, error) {
	store := database
	if cfg.Cache.Backend == db.DriverSQLite {
		sqlite, err := db.NewSQLiteDatabase(cfg.Cache.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, sqlite.Close)
		a.Health = append(a.Health, health.NewCacheDBHealthChecker(sqlite))
		store = sqlite
	}
	var repo ports.CacheRepository = repositories.NewCacheRepository(store, a.Logger)
	if hot != nil && cfg.Cache.RedisEnabled {
		repo = repositories.NewCachingCacheRepository(repo, hot, loc)
	}
	return repo, nil
}

func newSender(cfg configs.EmailConfig, dryRun bool, logger *logrus.Logger) (ports.EmailSender, error) {
	if dryRun {
		return email.NewLogSender(logger), nil
	}
	if cfg.SendGridAPIKey == "" {
		logger.Warn("SENDGRID_API_KEY not set; emails will only be logged")
		return email.NewLogSender(logger), nil
	}
	return email.NewEmailService(&email.EmailConfig{
		SendGridAPIKey: cfg.SendGridAPIKey,
		FromEmail:      cfg.FromEmail,
		FromName:       cfg.FromName,
	}, logger)
}

// NewServer builds the ops HTTP server over the app's services.
func (a *App) NewServer() *httpserver.Server {
	s := a.Config.Server
	return httpserver.NewServer(&httpserver.ServerConfig{
		Host:         s.Host,
		Port:         s.Port,
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
		IdleTimeout:  s.IdleTimeout,
		TLSCertFile:  s.TLSCertFile,
		TLSKeyFile:   s.TLSKeyFile,
	}, a.Logger, httpserver.ServerDeps{
		SummaryService:     a.Summaries,
		NewsletterService:  a.Newsletter,
		CacheStore:         a.CacheStore,
		DeliveryLogService: a.Deliveries,
		OpsAuthService:     a.OpsAuth,
		HealthCheckers:     a.Health,
	})
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
