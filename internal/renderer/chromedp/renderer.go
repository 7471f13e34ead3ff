// Package chromedprenderer implements the Renderer on headless Chrome via
// chromedp. One browser process is shared through the exec allocator; each
// origin gets its own browser context (cookies, cache) and each captured URL
// runs in a fresh tab inside that context.
package chromedprenderer

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/web-snapshot/internal/snapshot"
)

// Config controls navigation and page-settling behavior.
type Config struct {
	UserAgent      string
	NavTimeout     time.Duration
	SettleDelay    time.Duration
	ScrollStep     int
	ScrollDelay    time.Duration
	ViewportWidth  int
	ViewportHeight int
}

func (c *Config) applyDefaults() {
	if c.NavTimeout <= 0 {
		c.NavTimeout = 60 * time.Second
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = 2 * time.Second
	}
	if c.ScrollStep <= 0 {
		c.ScrollStep = 100
	}
	if c.ScrollDelay <= 0 {
		c.ScrollDelay = 100 * time.Millisecond
	}
	if c.ViewportWidth <= 0 {
		c.ViewportWidth = 1600
	}
	if c.ViewportHeight <= 0 {
		c.ViewportHeight = 2000
	}
}

// Renderer owns the Chrome exec allocator shared by all sessions.
type Renderer struct {
	cfg         Config
	allocator   context.Context
	allocCancel context.CancelFunc
	logger      *zap.Logger
}

// New creates a Renderer. Chrome itself is launched lazily by the first
// session.
func New(cfg Config, logger *zap.Logger) *Renderer {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Renderer{
		cfg:         cfg,
		allocator:   allocCtx,
		allocCancel: allocCancel,
		logger:      logger,
	}
}

// NewSession opens a browser context for one origin. The warmup Run surfaces
// launch failures here instead of on the first capture.
func (r *Renderer) NewSession(ctx context.Context, origin string) (snapshot.Session, error) {
	browserCtx, browserCancel := chromedp.NewContext(r.allocator)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}
	select {
	case <-ctx.Done():
		browserCancel()
		return nil, ctx.Err()
	default:
	}

	r.logger.Debug("browser context opened", zap.String("origin", origin))
	return &session{
		cfg:        r.cfg,
		browserCtx: browserCtx,
		cancel:     browserCancel,
		logger:     r.logger.With(zap.String("origin", origin)),
	}, nil
}

// Close tears down the allocator and with it every remaining session.
func (r *Renderer) Close(ctx context.Context) error {
	if r == nil {
		return nil
	}
	r.allocCancel()
	select {
	case <-ctx.Done():
	default:
	}
	return nil
}

type session struct {
	cfg        Config
	browserCtx context.Context
	cancel     context.CancelFunc
	logger     *zap.Logger
}

// Capture navigates a fresh tab, scrolls the full page height to trigger
// lazy-loaded content, returns to the top, and grabs the rendered HTML plus
// a full-page screenshot.
func (s *session) Capture(ctx context.Context, url string) (snapshot.Page, error) {
	tabCtx, cancelTab := chromedp.NewContext(s.browserCtx)
	defer cancelTab()

	taskCtx, cancelTask := context.WithTimeout(tabCtx, s.cfg.NavTimeout)
	defer cancelTask()

	stopForward := forwardCancel(ctx, cancelTask)
	defer stopForward()

	var (
		html string
		shot []byte
	)
	tasks := chromedp.Tasks{
		chromedp.ActionFunc(func(ctx context.Context) error {
			if s.cfg.UserAgent == "" {
				return nil
			}
			return emulation.SetUserAgentOverride(s.cfg.UserAgent).Do(ctx)
		}),
		chromedp.EmulateViewport(int64(s.cfg.ViewportWidth), int64(s.cfg.ViewportHeight)),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(time.Second),
		s.scrollToBottom(),
		chromedp.Sleep(s.cfg.SettleDelay),
		chromedp.Evaluate("window.scrollTo(0, 0)", nil),
		chromedp.Sleep(time.Second),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.FullScreenshot(&shot, 100),
	}
	if err := chromedp.Run(taskCtx, tasks); err != nil {
		return snapshot.Page{}, fmt.Errorf("chromedp run: %w", err)
	}

	s.logger.Debug("page captured",
		zap.String("url", url),
		zap.Int("html_bytes", len(html)),
		zap.Int("screenshot_bytes", len(shot)),
	)
	return snapshot.Page{
		HTML:       []byte(html),
		Screenshot: shot,
	}, nil
}

func (s *session) Close() error {
	s.cancel()
	return nil
}

// scrollToBottom walks the page in fixed increments so lazy loaders observe
// scroll events the way they would from a real user.
func (s *session) scrollToBottom() chromedp.Action {
	script := fmt.Sprintf(`new Promise((resolve) => {
		let total = 0;
		const step = %d;
		const timer = setInterval(() => {
			window.scrollBy(0, step);
			total += step;
			if (total >= document.body.scrollHeight) {
				clearInterval(timer);
				resolve(true);
			}
		}, %d);
	})`, s.cfg.ScrollStep, s.cfg.ScrollDelay.Milliseconds())

	return chromedp.Evaluate(script, nil, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	})
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
