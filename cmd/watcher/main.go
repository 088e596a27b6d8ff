package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"dealwatch/internal/config"
	"dealwatch/internal/filter"
	"dealwatch/internal/publisher"
	"dealwatch/internal/scheduler"
	"dealwatch/internal/service"
	"dealwatch/internal/snapshot"
	"dealwatch/internal/source/bazos"
	"dealwatch/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	var pub service.Publisher
	if cfg.RabbitMQ.Enabled {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer rabbitMQ.Close()
		pub = rabbitMQ
	}

	dealStore := postgres.NewDealStore(db)
	runStore := postgres.NewRunStore(db)
	categoryStore := postgres.NewCategoryStore(db)
	txManager := postgres.NewTransactionManager(db)

	snapshots, err := snapshot.NewStore(cfg.Snapshots.Dir, logger)
	if err != nil {
		logger.Error("failed to open snapshot store", "error", err)
		os.Exit(1)
	}

	upserter := service.NewDealUpserter(dealStore, txManager, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if n, err := runStore.FailStaleRuns(ctx); err != nil {
		logger.Warn("failed to clean up stale runs", "error", err)
	} else if n > 0 {
		logger.Info("marked stale runs as failed", "count", n)
	}

	var watchers []scheduler.Watcher
	for _, sc := range cfg.Scrapers {
		if !sc.IsEnabled() {
			logger.Info("scraper disabled, skipping", "name", sc.Name)
			continue
		}

		categoryID, err := categoryStore.Ensure(ctx, sc.Name, sc.Type, sc.URL)
		if err != nil {
			logger.Error("failed to register category", "name", sc.Name, "error", err)
			os.Exit(1)
		}

		listingFilter, err := filter.New(sc.Type, criteriaFrom(sc.Filters), logger.With("scraper", sc.Name))
		if err != nil {
			logger.Error("failed to build filter", "name", sc.Name, "error", err)
			os.Exit(1)
		}

		src := bazos.New(bazos.Config{
			CategoryURL:    sc.URL,
			Category:       sc.Name,
			Timeout:        cfg.Scraping.Timeout,
			RequestDelay:   cfg.Scraping.RequestDelay,
			UserAgent:      cfg.Scraping.UserAgent,
			MaxAttempts:    cfg.Scraping.Retry.MaxAttempts,
			InitialBackoff: cfg.Scraping.Retry.InitialBackoff,
			MaxBackoff:     cfg.Scraping.Retry.MaxBackoff,
		}, logger)

		watchers = append(watchers, service.NewWatchService(
			src,
			listingFilter,
			upserter,
			runStore,
			snapshots,
			pub,
			logger,
			categoryID,
			sc.MaxPages,
		))
	}

	if len(watchers) == 0 {
		logger.Error("no enabled scrapers configured")
		os.Exit(1)
	}

	sched := scheduler.NewScheduler(watchers, cfg.Watch.Interval, logger)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	logger.Info("starting deal watcher",
		"scrapers", len(watchers),
		"interval", cfg.Watch.Interval,
	)

	if err := sched.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
}

func criteriaFrom(f config.FilterConfig) filter.Criteria {
	return filter.Criteria{
		KeywordsAny:       f.KeywordsAny,
		KeywordsAll:       f.KeywordsAll,
		KeywordsEngine:    f.KeywordsEngine,
		KeywordsExcluded:  f.KeywordsExcluded,
		PriceMin:          f.PriceMin,
		PriceMax:          f.PriceMax,
		AreaMin:           f.AreaMin,
		LandKeywords:      f.LandKeywords,
		FloorAreaKeywords: f.FloorAreaKeywords,
		LikelyLandMin:     f.LikelyLandMin,
		MinRealisticPrice: f.MinRealisticPrice,
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
