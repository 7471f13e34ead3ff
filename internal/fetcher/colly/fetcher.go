// Package collyfetcher implements Fetcher using gocolly. It serves the
// plain-HTTP side of the system: robots.txt reads and sitemap candidate
// probes, where no rendering is involved.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/web-snapshot/internal/snapshot"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Fetcher performs single HTTP GETs through a Colly collector.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	c.WithTransport(newHTTPTransport())
	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
	}
}

// Fetch executes one GET and returns the response regardless of HTTP status.
// Probing relies on seeing 404s as responses, not errors; only transport
// failures return an error.
func (f *Fetcher) Fetch(ctx context.Context, url string) (snapshot.FetchResponse, error) {
	collector := f.baseCollector.Clone()
	collector.AllowURLRevisit = true
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	timeout := f.cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	collector.SetRequestTimeout(timeout)

	var (
		result   snapshot.FetchResponse
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		result = responseFrom(r)
	})
	collector.OnError(func(r *colly.Response, err error) {
		// Colly routes non-2xx statuses here. Keep the status-bearing
		// response; only statusless failures stay errors.
		if r != nil && r.StatusCode != 0 {
			result = responseFrom(r)
			return
		}
		fetchErr = err
	})

	if err := f.run(ctx, collector, url); err != nil {
		if result.StatusCode != 0 {
			return result, nil
		}
		return snapshot.FetchResponse{}, err
	}
	if fetchErr != nil {
		return snapshot.FetchResponse{}, fmt.Errorf("colly response failed: %w", fetchErr)
	}
	return result, nil
}

func (f *Fetcher) run(ctx context.Context, collector *colly.Collector, url string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		return nil
	}
}

func responseFrom(r *colly.Response) snapshot.FetchResponse {
	resp := snapshot.FetchResponse{
		URL:        r.Request.URL.String(),
		StatusCode: r.StatusCode,
		Body:       append([]byte(nil), r.Body...),
	}
	if r.Headers != nil {
		resp.Headers = r.Headers.Clone()
	}
	return resp
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
