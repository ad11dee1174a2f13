package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/uptrace/bun"

	"ms-csevents/internal/config"
	"ms-csevents/internal/csevents/db"
	"ms-csevents/internal/csevents/service"
	"ms-csevents/internal/database"
	"ms-csevents/internal/kafka"
	"ms-csevents/internal/lock"
	"ms-csevents/internal/logger"
	"ms-csevents/internal/scraper"
)

// RunLockKey is the Redis key every process of a deployment contends on.
const RunLockKey = "csevents:scrape:lock"

// App holds the connections and services shared by the HTTP server and the
// CLI.
type App struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       *bun.DB
	Store    *db.DB
	Redis    *redis.Client
	Producer *kafka.Producer
	Scraper  *scraper.Scraper
	Pipeline *service.Pipeline
}

// Build connects to the database, applies the schema and assembles the
// scrape pipeline. Redis and Kafka are optional: a failure to reach them is
// logged and the pipeline runs without the cross-process lock or run
// notifications.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	if log == nil {
		log = logger.NewNop()
	}

	bunDB, err := database.Connect(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, bunDB, cfg.Database.URL, log); err != nil {
		bunDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	a := &App{
		Config: cfg,
		Logger: log,
		DB:     bunDB,
		Store:  &db.DB{Bun: bunDB},
	}

	a.Scraper, err = scraper.New(scraper.OptionsFrom(cfg.Scraper), log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("scraper: %w", err)
	}
	a.Pipeline = service.NewPipeline(a.Scraper, service.NewReconciler(a.Store, log), log)

	a.connectRedis(ctx)
	a.connectKafka(ctx)
	return a, nil
}

func (a *App) connectRedis(ctx context.Context) {
	cfg := a.Config.Redis
	if cfg.Addr == "" {
		a.Logger.Info("REDIS", "REDIS_ADDR not set, runs are serialized within this process only")
		return
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		a.Logger.Warn("REDIS", fmt.Sprintf("Redis at %s unreachable, continuing without run lock: %v", cfg.Addr, err))
		client.Close()
		return
	}

	a.Redis = client
	a.Pipeline.Lock = lock.NewRedis(client, a.Logger).RunLock(RunLockKey, cfg.LockTTL)
	a.Logger.Info("REDIS", fmt.Sprintf("Redis connection successful to %s (DB: %d)", cfg.Addr, cfg.DB))
}

func (a *App) connectKafka(ctx context.Context) {
	cfg := a.Config.Kafka
	if !cfg.Enabled {
		return
	}

	if err := kafka.EnsureTopicsExist(ctx, cfg.Brokers, []string{cfg.Topic}, a.Logger); err != nil {
		a.Logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
	}
	a.Producer = kafka.NewProducer(cfg.Brokers, cfg.Topic, a.Logger)
	a.Pipeline.Publisher = a.Producer
	a.Logger.Info("KAFKA", fmt.Sprintf("Run notifications go to %s", cfg.Topic))
}

// Close releases every connection Build opened.
func (a *App) Close() error {
	var errs []error
	if a.Producer != nil {
		errs = append(errs, a.Producer.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}
