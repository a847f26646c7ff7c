package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glizzus/jukebox/internal/config"
	"github.com/glizzus/jukebox/internal/datalayer"
	"github.com/glizzus/jukebox/internal/generator"
	"github.com/glizzus/jukebox/internal/repository"
	"github.com/glizzus/jukebox/internal/worker"
	"github.com/redis/go-redis/v9"
)

var dryRun = flag.Bool("dry-run", false, "Do not write to Postgres, just print events to the terminal")

var consumerName = flag.String("consumer", "", "Consumer name within the group (defaults to the hostname)")

const retryDelay = 5 * time.Second

// consumer picks a stable name so unacknowledged entries are replayed after
// a restart, falling back to a random one.
func consumer() (string, error) {
	if *consumerName != "" {
		return *consumerName, nil
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return "worker-" + host, nil
	}
	keys := &generator.KeyGenerator{Prefix: "worker-"}
	return keys.Next()
}

func newEventHandler(ctx context.Context) (worker.EventHandler, func(), error) {
	if *dryRun {
		slog.Info("Dry run mode: events are printed, not stored")
		return &worker.PrintingEventHandler{}, func() {}, nil
	}

	pool, err := datalayer.NewPostgresPoolFromEnv(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := datalayer.MigratePostgres(pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to migrate postgres: %w", err)
	}
	repo := repository.NewPostgresHistoryRepository(pool)
	return worker.NewHistoryEventHandler(repo), pool.Close, nil
}

func runWorkerForever() error {
	flag.Parse()
	if err := config.LoadEnv(); err != nil {
		if os.IsNotExist(err) {
			slog.Warn("No .env file found, continuing without it")
		} else {
			return fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	logConfig, err := config.NewLogConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load log config: %w", err)
	}
	slog.SetLogLoggerLevel(logConfig.Level)

	redisConfig, err := config.NewRedisConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load redis config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := redis.NewClient(&redis.Options{
		Addr:     redisConfig.Addr,
		Password: redisConfig.Password,
		DB:       redisConfig.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	name, err := consumer()
	if err != nil {
		return fmt.Errorf("failed to pick a consumer name: %w", err)
	}

	eventHandler, closeHandler, err := newEventHandler(ctx)
	if err != nil {
		return err
	}
	defer closeHandler()

	receiver, err := worker.NewRedisPlaybackReceiver(ctx, rdb, redisConfig.EventStream, redisConfig.ConsumerGroup, name)
	if err != nil {
		return fmt.Errorf("failed to create playback receiver: %w", err)
	}

	slog.Info("Consuming playback events",
		"stream", redisConfig.EventStream,
		"group", redisConfig.ConsumerGroup,
		"consumer", name,
	)
	return worker.Run(ctx, receiver, eventHandler, retryDelay)
}

func main() {
	if err := runWorkerForever(); err != nil {
		slog.Error("Worker encountered an error", slog.Any("error", err))
		os.Exit(1)
	}
}
