// Package main wires together the supervisor service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kiltia/inbrief-supervisor/internal/api"
	redisbroadcast "github.com/kiltia/inbrief-supervisor/internal/broadcast/redis"
	"github.com/kiltia/inbrief-supervisor/internal/clock/system"
	"github.com/kiltia/inbrief-supervisor/internal/cluster"
	"github.com/kiltia/inbrief-supervisor/internal/config"
	"github.com/kiltia/inbrief-supervisor/internal/fetch"
	"github.com/kiltia/inbrief-supervisor/internal/id/uuid"
	"github.com/kiltia/inbrief-supervisor/internal/logging"
	"github.com/kiltia/inbrief-supervisor/internal/metrics"
	"github.com/kiltia/inbrief-supervisor/internal/pipeline"
	"github.com/kiltia/inbrief-supervisor/internal/ranking"
	"github.com/kiltia/inbrief-supervisor/internal/remote"
	"github.com/kiltia/inbrief-supervisor/internal/scheduler"
	"github.com/kiltia/inbrief-supervisor/internal/storage/postgres"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		DSN:      cfg.DB.DSN,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	})
	if err != nil {
		logger.Fatal("postgres pool init failed", zap.Error(err))
	}
	defer pool.Close()

	storyStore, err := postgres.NewStoryStore(pool)
	if err != nil {
		logger.Fatal("story store init failed", zap.Error(err))
	}
	scheduleStore, err := postgres.NewScheduleStore(pool)
	if err != nil {
		logger.Fatal("schedule store init failed", zap.Error(err))
	}
	requestStore, err := postgres.NewRequestStore(pool)
	if err != nil {
		logger.Fatal("request store init failed", zap.Error(err))
	}
	configStore, err := postgres.NewConfigStore(pool)
	if err != nil {
		logger.Fatal("config store init failed", zap.Error(err))
	}
	summaryStore, err := postgres.NewSummaryStore(pool)
	if err != nil {
		logger.Fatal("summary store init failed", zap.Error(err))
	}

	broadcaster, err := redisbroadcast.New(redisbroadcast.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		logger.Fatal("redis init failed", zap.Error(err))
	}
	defer func() {
		if closeErr := broadcaster.Close(); closeErr != nil {
			logger.Error("redis close failed", zap.Error(closeErr))
		}
	}()

	clk := system.New()
	idGen := uuid.New()

	caller := remote.NewCaller(cfg.RemoteTimeout(), logger.Named("remote"))
	scraper := remote.NewScraperClient(caller, cfg.Remote.ScraperHost, cfg.Remote.ScraperPort)
	linker := remote.NewLinkerClient(caller, cfg.Remote.LinkerHost, cfg.Remote.LinkerPort)
	summarizer := remote.NewSummarizerClient(caller, cfg.Remote.SummarizerHost, cfg.Remote.SummarizerPort)

	ranker := ranking.NewRanker(ranking.DefaultScorers(), logger.Named("ranking"))
	orchestrator := cluster.New(linker, idGen, cfg.Linking, logger.Named("cluster"))
	fanout := pipeline.New(
		orchestrator,
		ranker,
		storyStore,
		idGen,
		pipeline.Config{
			PoolSize:        cfg.Pipeline.CategoryPoolSize,
			FinalizeTimeout: cfg.Pipeline.FinalizeTimeout(),
			FailurePolicy:   pipeline.FailurePolicy(cfg.Pipeline.FailurePolicy),
			Weights:         cfg.Ranking.Weights,
		},
		logger.Named("pipeline"),
	)
	service := fetch.New(
		scraper,
		orchestrator,
		ranker,
		fanout,
		summarizer,
		configStore,
		requestStore,
		storyStore,
		summaryStore,
		clk,
		idGen,
		cfg.Ranking.Weights,
		logger.Named("fetch"),
	)

	apiServer := api.NewServer(service, scheduleStore, idGen, clk, logger.Named("api"))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	sched := scheduler.New(scheduleStore, broadcaster, clk, scheduler.Config{
		Channel:  cfg.Scheduler.Channel,
		Interval: cfg.Scheduler.Interval(),
		Timeout:  cfg.Scheduler.Timeout(),
		Location: schedulerLocation(cfg.Scheduler.UTCOffsetHours),
	}, logger.Named("scheduler"))

	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		sched.Run(ctx)
	}()

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	select {
	case <-schedulerDone:
	case <-time.After(cfg.Scheduler.ShutdownTimeout()):
		logger.Warn("scheduler did not stop in time, exiting anyway")
	}
}

// schedulerLocation fixes the zone for cron due-ness comparisons.
func schedulerLocation(offsetHours int) *time.Location {
	if offsetHours == 0 {
		return time.UTC
	}
	return time.FixedZone(fmt.Sprintf("UTC%+d", offsetHours), offsetHours*3600)
}
