package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/web-snapshot/internal/capture"
	"github.com/JakeFAU/web-snapshot/internal/clock/system"
	"github.com/JakeFAU/web-snapshot/internal/hash/sha256"
	chromedprenderer "github.com/JakeFAU/web-snapshot/internal/renderer/chromedp"
	localstorage "github.com/JakeFAU/web-snapshot/internal/storage/local"
)

func newCaptureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "capture URL...",
		Short: "Capture rendered HTML and screenshots for one or more URLs",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runCapture,
	}
}

func runCapture(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	urls := make([]string, 0, len(args))
	for _, raw := range args {
		if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
			raw = "https://" + raw
		}
		urls = append(urls, raw)
	}

	store, err := localstorage.New(localstorage.Config{BaseDir: cfg.Storage.BaseDir})
	if err != nil {
		return fmt.Errorf("init snapshot store: %w", err)
	}
	hasher := sha256.New()

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
		if cerr := renderer.Close(cmd.Context()); cerr != nil {
			logger.Warn("renderer close failed", zap.Error(cerr))
		}
	}()

	pipeline := capture.NewPipeline(
		store,
		hasher,
		system.New(),
		capture.NewDedupIndex(store, hasher),
		logger.Named("capture"),
	)
	orchestrator := capture.NewOrchestrator(renderer, pipeline, logger.Named("capture"))

	results, err := orchestrator.Capture(cmd.Context(), urls)
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}

	out, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	cmd.Println(string(out))
	return nil
}
