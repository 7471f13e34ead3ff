// Package main wires together the snapshot service binary.
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

	"github.com/JakeFAU/web-snapshot/internal/api"
	"github.com/JakeFAU/web-snapshot/internal/capture"
	"github.com/JakeFAU/web-snapshot/internal/clock/system"
	"github.com/JakeFAU/web-snapshot/internal/config"
	"github.com/JakeFAU/web-snapshot/internal/dispatcher"
	collyfetcher "github.com/JakeFAU/web-snapshot/internal/fetcher/colly"
	"github.com/JakeFAU/web-snapshot/internal/hash/sha256"
	"github.com/JakeFAU/web-snapshot/internal/id/uuid"
	"github.com/JakeFAU/web-snapshot/internal/logging"
	"github.com/JakeFAU/web-snapshot/internal/metrics"
	memorypublisher "github.com/JakeFAU/web-snapshot/internal/publisher/memory"
	queuememory "github.com/JakeFAU/web-snapshot/internal/queue/memory"
	chromedprenderer "github.com/JakeFAU/web-snapshot/internal/renderer/chromedp"
	"github.com/JakeFAU/web-snapshot/internal/sitemap"
	"github.com/JakeFAU/web-snapshot/internal/snapshot"
	localstorage "github.com/JakeFAU/web-snapshot/internal/storage/local"
	memorystorage "github.com/JakeFAU/web-snapshot/internal/storage/memory"
	"github.com/JakeFAU/web-snapshot/internal/storage/postgres"
	"github.com/JakeFAU/web-snapshot/internal/worker"
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

	clock := system.New()

	jobStore, closeJobStore, err := buildJobStore(ctx, cfg, clock)
	if err != nil {
		logger.Fatal("job store init failed", zap.Error(err))
	}
	defer closeJobStore()

	// Jobs left queued or running by a previous process cannot resume.
	if err := worker.MarkInterrupted(ctx, jobStore, logger.Named("recovery")); err != nil {
		logger.Fatal("crash recovery failed", zap.Error(err))
	}

	snapStore, err := localstorage.New(localstorage.Config{BaseDir: cfg.Storage.BaseDir})
	if err != nil {
		logger.Fatal("snapshot store init failed", zap.Error(err))
	}

	hasher := sha256.New()
	idGen := uuid.New()

	renderer := chromedprenderer.New(chromedprenderer.Config{
		UserAgent:      cfg.Renderer.UserAgent,
		NavTimeout:     cfg.NavTimeout(),
		SettleDelay:    time.Duration(cfg.Renderer.SettleMs) * time.Millisecond,
		ScrollStep:     cfg.Renderer.ScrollStepPx,
		ScrollDelay:    time.Duration(cfg.Renderer.ScrollDelayMs) * time.Millisecond,
		ViewportWidth:  cfg.Renderer.ViewportWidth,
		ViewportHeight: cfg.Renderer.ViewportHeight,
	}, logger.Named("renderer"))
	defer func() {
		if cerr := renderer.Close(context.Background()); cerr != nil {
			logger.Warn("renderer close failed", zap.Error(cerr))
		}
	}()

	pipeline := capture.NewPipeline(
		snapStore,
		hasher,
		clock,
		capture.NewDedupIndex(snapStore, hasher),
		logger.Named("capture"),
	)
	orchestrator := capture.NewOrchestrator(renderer, pipeline, logger.Named("capture"))

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Sitemap.UserAgent,
		Timeout:   cfg.SitemapTimeout(),
	})
	resolver := sitemap.NewResolver(fetcher, logger.Named("sitemap"))

	queue := queuememory.NewQueue(cfg.Workers.QueueDepth)
	publisher := memorypublisher.New()
	workerCfg := worker.Config{Topic: cfg.Events.CompletedTopic}

	var workers []*worker.Worker
	for i := 0; i < cfg.Workers.Count; i++ {
		workers = append(workers, worker.New(
			queue,
			jobStore,
			orchestrator,
			publisher,
			clock,
			workerCfg,
			logger.Named("worker").With(zap.Int("index", i)),
		))
	}
	dispatch := dispatcher.New(queue, workers)

	apiServer := api.NewServer(jobStore, dispatch, resolver, idGen, clock, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("dispatcher started", zap.Int("workers", cfg.Workers.Count))
		dispatch.Run(ctx)
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
	queue.Close()
	logger.Info("shutdown complete")
}

func buildJobStore(ctx context.Context, cfg config.Config, clk snapshot.Clock) (snapshot.JobStore, func(), error) {
	if cfg.DB.DSN == "" {
		return memorystorage.NewJobStore(clk), func() {}, nil
	}
	store, err := postgres.NewJobStore(ctx, postgres.JobStoreConfig{
		DSN:      cfg.DB.DSN,
		Table:    cfg.DB.Table,
		MaxConns: cfg.DB.MaxConns,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("postgres job store: %w", err)
	}
	return store, store.Close, nil
}
