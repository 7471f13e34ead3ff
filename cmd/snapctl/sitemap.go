package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	collyfetcher "github.com/JakeFAU/web-snapshot/internal/fetcher/colly"
	"github.com/JakeFAU/web-snapshot/internal/sitemap"
)

func newSitemapCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "sitemap BASE",
		Short: "Discover sitemaps from robots.txt and common paths",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSitemap(cmd, args[0], asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print machine-readable JSON output")
	return cmd
}

func runSitemap(cmd *cobra.Command, base string, asJSON bool) error {
	cfg, logger, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Sitemap.UserAgent,
		Timeout:   cfg.SitemapTimeout(),
	})
	resolver := sitemap.NewResolver(fetcher, logger.Named("sitemap"))

	res, err := resolver.Resolve(cmd.Context(), base)
	if err != nil {
		return fmt.Errorf("resolve sitemaps: %w", err)
	}

	if asJSON {
		out, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("encode resolution: %w", err)
		}
		cmd.Println(string(out))
		return nil
	}

	cmd.Printf("Base: %s\n", res.Base)
	if res.RootSitemap == "" {
		cmd.Println("No sitemap found via robots or common paths.")
		return nil
	}
	cmd.Printf("Root sitemap: %s (type=%s) [via %s]\n", res.RootSitemap, res.RootType, res.FoundVia)
	switch res.RootType {
	case sitemap.RootSitemapIndex:
		cmd.Println("Child sitemaps:")
		for _, u := range res.Sitemaps {
			cmd.Printf(" - %s\n", u)
		}
	default:
		cmd.Println("Using single sitemap")
	}
	return nil
}
