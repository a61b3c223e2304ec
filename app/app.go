// Package app wires the analytics service together: configuration,
// database, cache backend, engine, realtime push and the HTTP server.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"tiertrend/analytics"
	"tiertrend/api"
	"tiertrend/cache"
	"tiertrend/config"
	"tiertrend/database"
	"tiertrend/realtime"
	"tiertrend/tier"
)

// App represents the main application
type App struct {
	config *config.Config
	log    *logrus.Logger

	db     *database.Database
	store  cache.Store
	engine *analytics.Engine
	broker *realtime.Broker
	hub    *realtime.Hub
	server *api.Server
	cron   *cron.Cron
}

// New creates a new application instance
func New(cfg *config.Config, log *logrus.Logger) *App {
	return &App{
		config: cfg,
		log:    log,
	}
}

// Start brings up all components and blocks until shutdown
func (a *App) Start() error {
	a.log.Info("Connecting to database...")
	db, err := database.Connect(database.Config{
		Host:     a.config.DatabaseHost,
		Port:     a.config.DatabasePort,
		User:     a.config.DatabaseUser,
		Password: a.config.DatabasePassword,
		DBName:   a.config.DatabaseName,
	})
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	a.db = db
	defer a.db.Close()

	a.store = a.buildCacheStore()

	repo := database.NewRepository(db)
	ranks := tier.DefaultRankTable()
	a.engine = analytics.NewEngine(
		repo,
		a.store,
		ranks,
		a.log,
		time.Duration(a.config.Engine.RequestTimeoutSeconds)*time.Second,
		time.Duration(a.config.Cache.TTLMinutes)*time.Minute,
	)

	a.broker = realtime.NewBroker(a.log)
	go a.broker.Run()
	a.hub = realtime.NewHub(a.log)

	if err := a.startSweeper(); err != nil {
		return err
	}
	defer a.cron.Stop()

	a.server = api.NewServer(a.engine, a.db, a.broker, a.hub, a.log)

	errChan := make(chan error, 1)
	go func() {
		errChan <- a.server.Start(a.config.ServerPort)
	}()

	// Wait for shutdown signal or server failure
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.log.WithField("signal", sig.String()).Info("Shutting down")
		return nil
	case err := <-errChan:
		return fmt.Errorf("http server failed: %w", err)
	}
}

// buildCacheStore picks the configured cache backend, falling back to the
// in-memory store when Redis is unreachable.
func (a *App) buildCacheStore() cache.Store {
	if a.config.Cache.Backend == "redis" {
		store, err := cache.NewRedisStore(
			a.config.RedisHost,
			a.config.RedisPort,
			a.config.RedisPassword,
		)
		if err == nil {
			a.log.Info("Using Redis trend cache")
			return store
		}
		a.log.WithError(err).Warn("Redis unavailable, falling back to in-memory cache")
	}
	return cache.NewMemoryStore(a.config.Cache.SweepThreshold)
}

// startSweeper schedules the periodic cache sweep
func (a *App) startSweeper() error {
	a.cron = cron.New()
	_, err := a.cron.AddFunc(a.config.Cache.SweepSchedule, func() {
		evicted := a.store.Sweep(context.Background())
		if evicted > 0 {
			a.log.WithField("evicted", evicted).Debug("cache sweep completed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cache sweep schedule %q: %w", a.config.Cache.SweepSchedule, err)
	}
	a.cron.Start()
	return nil
}
