// Package scraping provides headless-browser profile extraction and outreach
// delivery. One Session is exclusively owned by one pipeline run and must be
// closed when the run ends.
package scraping

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// DefaultNavigationTimeout bounds a single page render.
const DefaultNavigationTimeout = 30 * time.Second

// renderSettleDelay gives client-side JavaScript time to populate the page
// after the initial load event.
const renderSettleDelay = 3 * time.Second

// SessionConfig holds configuration for a browsing session.
type SessionConfig struct {
	// SessionCookie is the authenticated li_at cookie value. Required for
	// profile pages behind the auth wall.
	SessionCookie string
	// NavigationTimeout bounds each page render; zero means DefaultNavigationTimeout.
	NavigationTimeout time.Duration
	Verbose           bool
}

// Session owns one headless browser context for the duration of a pipeline run.
type Session struct {
	browserCtx context.Context
	cancels    []context.CancelFunc
	timeout    time.Duration
	verbose    bool
}

// NewSession launches a headless browser and injects the platform session
// cookie. The caller must Close the session on every exit path.
func NewSession(ctx context.Context, cfg SessionConfig) (*Session, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	s := &Session{
		browserCtx: browserCtx,
		cancels:    []context.CancelFunc{cancelBrowser, cancelAlloc},
		timeout:    cfg.NavigationTimeout,
		verbose:    cfg.Verbose,
	}
	if s.timeout == 0 {
		s.timeout = DefaultNavigationTimeout
	}

	if cfg.SessionCookie != "" {
		err := chromedp.Run(browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
			return network.SetCookie("li_at", cfg.SessionCookie).
				WithDomain(".linkedin.com").
				WithPath("/").
				WithHTTPOnly(true).
				WithSecure(true).
				Do(ctx)
		}))
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to set session cookie: %w", err)
		}
		if cfg.Verbose {
			log.Printf("[BROWSER] session cookie set")
		}
	}

	return s, nil
}

// Close releases the browser context. Safe to call more than once.
func (s *Session) Close() {
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = nil
}

// Render navigates to a URL, waits for the page to settle, and returns the
// rendered HTML plus the final URL after any redirects.
func (s *Session) Render(ctx context.Context, url string) (html string, finalURL string, err error) {
	if s.verbose {
		log.Printf("[BROWSER] navigating to: %s", url)
	}

	runCtx, cancel := context.WithTimeout(s.browserCtx, s.timeout)
	defer cancel()

	// Propagate caller cancellation into the browser context.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err = chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(renderSettleDelay),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", "", fmt.Errorf("page render failed: %w", err)
	}

	if s.verbose {
		log.Printf("[BROWSER] rendered %d bytes from %s", len(html), finalURL)
	}
	return html, finalURL, nil
}

// Screenshot captures the current page for debugging.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	runCtx, cancel := context.WithTimeout(s.browserCtx, s.timeout)
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var buf []byte
	if err := chromedp.Run(runCtx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return buf, nil
}

// run executes arbitrary browser actions under the session's timeout.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.browserCtx, s.timeout)
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}
