package page

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/chromedp/chromedp"

	"github.com/coopco/deskclock/internal/config"
)

// Chrome is a Page backed by one tab of a Chrome instance driven over the
// DevTools protocol. The browser profile in UserDataDir keeps the login
// session between runs.
type Chrome struct {
	url      string
	selector string

	tab         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
}

// toggleState is what the probe script returns.
type toggleState struct {
	Found   bool `json:"found"`
	Checked bool `json:"checked"`
}

// NewChrome launches Chrome and opens cfg.URL in a new tab.
func NewChrome(ctx context.Context, cfg config.PageConfig) (*Chrome, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("page: no url configured")
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
	)
	if cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
	}
	if cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromePath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	tab, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		slog.Debug("page: " + fmt.Sprintf(format, args...))
	}))

	c := &Chrome{
		url:         cfg.URL,
		selector:    cfg.Selector,
		tab:         tab,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
	}
	// the first Run on the tab context starts the browser
	if err := chromedp.Run(tab, chromedp.Navigate(cfg.URL)); err != nil {
		c.Close()
		return nil, fmt.Errorf("page: open %s: %w", cfg.URL, err)
	}
	slog.Info("page: opened", "url", cfg.URL, "headless", cfg.Headless)
	return c, nil
}

// run executes actions on the tab, bounded by the caller's ctx.
func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(c.tab)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (c *Chrome) Toggle(ctx context.Context) (bool, bool, error) {
	var st toggleState
	if err := c.run(ctx, chromedp.Evaluate(toggleScript(c.selector), &st)); err != nil {
		return false, false, fmt.Errorf("page: probe toggle: %w", err)
	}
	return st.Checked, st.Found, nil
}

func (c *Chrome) Click(ctx context.Context) error {
	var clicked bool
	if err := c.run(ctx, chromedp.Evaluate(clickScript(c.selector), &clicked)); err != nil {
		return fmt.Errorf("page: click toggle: %w", err)
	}
	if !clicked {
		return ErrElementNotFound
	}
	return nil
}

func (c *Chrome) Reload(ctx context.Context) error {
	slog.Debug("page: reloading", "url", c.url)
	if err := c.run(ctx, chromedp.Reload(), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("page: reload: %w", err)
	}
	return nil
}

// Close shuts the tab and the browser.
func (c *Chrome) Close() {
	c.cancelTab()
	c.cancelAlloc()
}

func quoteSelector(selector string) string {
	b, _ := json.Marshal(selector)
	return string(b)
}

func toggleScript(selector string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	return el ? {found: true, checked: !!el.checked} : {found: false, checked: false};
})()`, quoteSelector(selector))
}

func clickScript(selector string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el) return false;
	el.click();
	return true;
})()`, quoteSelector(selector))
}
