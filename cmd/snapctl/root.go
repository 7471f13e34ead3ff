package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/web-snapshot/internal/config"
	"github.com/JakeFAU/web-snapshot/internal/logging"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapctl",
		Short: "One-off web page captures and sitemap scans",
		Long: `snapctl runs the snapshot pipeline from the command line: capture
rendered HTML and full-page screenshots for a set of URLs, or discover the
sitemaps a site publishes, without starting the service.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional, defaults apply)")

	cmd.AddCommand(newCaptureCmd())
	cmd.AddCommand(newSitemapCmd())
	return cmd
}

func loadConfigAndLogger() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}
