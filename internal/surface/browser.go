// Package surface drives a real browser page with chromedp.
package surface

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"pkt.systems/pslog"
	"pkt.systems/tiller/internal/appconfig"
)

// Browser is a chromedp-backed page surface. It implements core.Surface.
// A single browser context serves all operations; callers serialize
// through the service so no extra locking is needed around page state,
// but Close may race an in-flight op and is guarded.
type Browser struct {
	mu          sync.Mutex
	allocCancel context.CancelFunc
	ctxCancel   context.CancelFunc
	browserCtx  context.Context
	opTimeout   time.Duration
	log         pslog.Logger
	closed      bool
}

// NewBrowser launches a browser instance per config. The returned
// Browser must be Closed when done.
func NewBrowser(cfg appconfig.BrowserConfig, logger pslog.Logger) (*Browser, error) {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	if dir := strings.TrimSpace(cfg.UserDataDir); dir != "" {
		opts = append(opts, chromedp.UserDataDir(dir))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, ctxCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		ctxCancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	timeout := time.Duration(cfg.OpTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger.Info("browser started", "headless", cfg.Headless, "op_timeout", timeout)
	return &Browser{
		allocCancel: allocCancel,
		ctxCancel:   ctxCancel,
		browserCtx:  browserCtx,
		opTimeout:   timeout,
		log:         logger,
	}, nil
}

// Navigate loads url in the page.
func (b *Browser) Navigate(ctx context.Context, url string) error {
	if strings.TrimSpace(url) == "" {
		return errors.New("navigate: empty url")
	}
	return b.run(ctx, "navigate", chromedp.Navigate(url))
}

// Click waits for selector to be visible and clicks it.
func (b *Browser) Click(ctx context.Context, selector string) error {
	if strings.TrimSpace(selector) == "" {
		return errors.New("click: empty selector")
	}
	return b.run(ctx, "click",
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	)
}

// SetValue sets the form control matched by selector to value and fires
// input and change events so framework bindings observe the write.
func (b *Browser) SetValue(ctx context.Context, selector, value string) error {
	if strings.TrimSpace(selector) == "" {
		return errors.New("set_value: empty selector")
	}
	script, err := setValueScript(selector, value)
	if err != nil {
		return err
	}
	return b.run(ctx, "set_value",
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Evaluate(script, nil),
	)
}

// Close shuts the browser down. Further operations fail.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	b.ctxCancel()
	b.allocCancel()
	b.log.Info("browser stopped")
	return nil
}

func (b *Browser) run(ctx context.Context, op string, actions ...chromedp.Action) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return errors.New("browser is closed")
	}
	browserCtx := b.browserCtx
	b.mu.Unlock()

	opCtx, cancel := context.WithTimeout(browserCtx, b.opTimeout)
	defer cancel()
	// Caller cancellation has to propagate into the chromedp context.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	start := time.Now()
	err := chromedp.Run(opCtx, actions...)
	if err != nil {
		b.log.Warn("browser op failed", "op", op, "took", time.Since(start), "err", err)
		return fmt.Errorf("%s: %w", op, err)
	}
	b.log.Debug("browser op done", "op", op, "took", time.Since(start))
	return nil
}

// setValueScript builds the page-side assignment. Selector and value are
// JSON-escaped so arbitrary strings cannot break out of the script.
func setValueScript(selector, value string) (string, error) {
	sel, err := json.Marshal(selector)
	if err != nil {
		return "", err
	}
	val, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el) { throw new Error("no element matches selector"); }
	el.value = %s;
	el.dispatchEvent(new Event("input", {bubbles: true}));
	el.dispatchEvent(new Event("change", {bubbles: true}));
})()`, sel, val), nil
}
