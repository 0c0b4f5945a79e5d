package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// ChromeRenderer renders pages in headless Chrome. Chrome or Chromium must
// be installed.
type ChromeRenderer struct {
	Timeout time.Duration
	// Settle is how long scripts get to render after the body is ready.
	Settle time.Duration
}

// NewChromeRenderer returns a renderer with the default timings.
func NewChromeRenderer() *ChromeRenderer {
	return &ChromeRenderer{Timeout: DefaultTimeout, Settle: 3 * time.Second}
}

// Render implements Renderer.
func (r *ChromeRenderer) Render(ctx context.Context, url string) (string, error) {
	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(DefaultUserAgent),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, r.Timeout)
	defer cancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(r.Settle),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("browser rendering failed: %w", err)
	}
	return html, nil
}
