package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/questlog/questlog/internal/cache"
	"github.com/questlog/questlog/internal/config"
	"github.com/questlog/questlog/internal/db"
	"github.com/questlog/questlog/internal/platform"
	"github.com/questlog/questlog/internal/remote"
	"github.com/questlog/questlog/internal/repository"
	"github.com/questlog/questlog/internal/scheduler"
	"github.com/questlog/questlog/internal/service"
	syncengine "github.com/questlog/questlog/internal/sync"
)

type App struct {
	Cfg               *config.Config
	DB                *sqlx.DB
	Cache             cache.Cache
	Registry          *platform.Registry
	AuthService       *service.AuthService
	ConnectionService *service.ConnectionService
	GoalService       *service.GoalService
	AggregateService  *service.AggregateService
	InsightService    *service.InsightService
	Reconciler        *syncengine.Reconciler
	Runner            *syncengine.CycleRunner
	Scheduler         *scheduler.Scheduler
}

func New(cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}

	// Run database migrations
	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %v", err)
	}

	// Cache: redis when configured, in-process otherwise
	var activityCache cache.Cache
	if cfg.RedisAddr != "" {
		activityCache, err = cache.NewRedis(cfg.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %v", err)
		}
	} else {
		activityCache = cache.NewMemory()
	}

	// Repositories
	userRepository := repository.NewUserRepository(database)
	connectionRepository := repository.NewConnectionRepository(database)
	goalRepository := repository.NewGoalRepository(database)
	streakRepository := repository.NewStreakRepository(database)

	// Platform adapters
	httpClient := &http.Client{Timeout: cfg.AdapterTimeout}
	registry := platform.NewRegistry()
	registry.Register(platform.NewLeetCode(httpClient, activityCache, cfg.CacheTTL))
	registry.Register(platform.NewCodeforces(httpClient, activityCache, cfg.CacheTTL))
	registry.Register(platform.NewGitHub(httpClient, cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.AppURL))
	registry.Register(platform.NewStrava(httpClient, cfg.StravaClientID, cfg.StravaClientSecret, cfg.AppURL))
	registry.Register(platform.NewNotion(cfg.NotionClientID, cfg.NotionClientSecret, cfg.AppURL))

	// Services
	authService := service.NewAuthService(userRepository, cfg.JWTSecret, cfg.JWTExpiry)
	connectionService := service.NewConnectionService(
		connectionRepository,
		registry,
		cfg.JWTSecret,
		cfg.OAuthStateExpiry,
		cfg.LastErrorMaxLen,
	)
	goalService := service.NewGoalService(goalRepository, streakRepository)
	aggregateService := service.NewAggregateService(connectionRepository, goalRepository, registry, connectionService)
	insightService := service.NewInsightService(cfg.OpenAIAPIKey, cfg.OpenAIModel)

	// Reconciliation
	reconciler := syncengine.NewReconciler(
		connectionRepository,
		goalRepository,
		connectionService,
		func(accessToken string) remote.Store { return remote.NewNotionStore(accessToken) },
		cfg.RemoteWriteTimeout,
		cfg.LastErrorMaxLen,
	)
	runner := syncengine.NewCycleRunner(
		connectionRepository,
		registry,
		aggregateService,
		goalService,
		insightService,
		reconciler,
		cfg.LastErrorMaxLen,
	)

	// One fixed-interval job per registered platform
	sched := scheduler.New()
	for _, adapter := range registry.All() {
		interval := cfg.SyncInterval(adapter.Key())
		sched.Add(adapter.Key(), interval, runner)
		slog.Info("sync job registered", "platform", adapter.Key(), "interval", interval)
	}

	return &App{
		Cfg:               cfg,
		DB:                database,
		Cache:             activityCache,
		Registry:          registry,
		AuthService:       authService,
		ConnectionService: connectionService,
		GoalService:       goalService,
		AggregateService:  aggregateService,
		InsightService:    insightService,
		Reconciler:        reconciler,
		Runner:            runner,
		Scheduler:         sched,
	}, nil
}

func (a *App) Close() error {
	if a.Cache != nil {
		err := a.Cache.Close()
		if err != nil {
			slog.Warn("cache close failed", "error", err)
		}
	}
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
