package scraper

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/maltedev/flipkart-scraper/internal/browser"
	"github.com/maltedev/flipkart-scraper/internal/models"
	"github.com/maltedev/flipkart-scraper/internal/ratelimit"
)

// minContentLength is the size below which fetched markup is almost
// certainly an error or interstitial page.
const minContentLength = 100

// BuildURL returns the search URL for one page of keyword results. The
// result depends only on its arguments.
func BuildURL(baseURL, searchEndpoint, keyword string, pageIndex int) string {
	q := url.Values{}
	q.Set("q", keyword)
	q.Set("page", strconv.Itoa(pageIndex))

	base := strings.TrimRight(baseURL, "/")
	if endpoint := strings.Trim(searchEndpoint, "/"); endpoint != "" {
		base += "/" + endpoint
	}
	return base + "?" + q.Encode()
}

type FetchOptions struct {
	NavigationTimeout time.Duration
	ReadinessTimeout  time.Duration
	// ReadinessSelectors are tried in order after navigation; the first one
	// that appears marks the page as ready.
	ReadinessSelectors []string
}

// Fetcher loads one page in a session and returns its rendered markup.
type Fetcher struct {
	opts    FetchOptions
	limiter ratelimit.RateLimiter
	logger  *slog.Logger
	now     func() time.Time
}

func NewFetcher(opts FetchOptions, limiter ratelimit.RateLimiter, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		opts:    opts,
		limiter: limiter,
		logger:  logger.With("component", "fetcher"),
		now:     time.Now,
	}
}

// Fetch navigates to pageURL and returns the markup. Navigation or content
// failures produce a result without markup instead of an error. An in-flight
// navigation is not interrupted by ctx; the courtesy delay that follows every
// fetch is.
func (f *Fetcher) Fetch(ctx context.Context, session browser.Session, pageURL string) models.FetchResult {
	result := models.FetchResult{URL: pageURL}

	defer func() {
		if err := f.limiter.Wait(ctx); err != nil {
			f.logger.Debug("courtesy delay interrupted", "error", err)
		}
	}()

	opCtx := context.WithoutCancel(ctx)

	f.logger.Info("fetching page", "url", pageURL)

	if err := session.Navigate(opCtx, pageURL, f.opts.NavigationTimeout); err != nil {
		f.logger.Error("failed to fetch page", "url", pageURL, "error", err)
		result.FetchedAt = f.now()
		return result
	}

	if selector, ok := f.awaitReadiness(opCtx, session); ok {
		f.logger.Info("found products using selector", "selector", selector)
	} else {
		f.logger.Warn("no product selector appeared, continuing anyway", "url", pageURL)
	}

	content, err := session.Content(opCtx)
	result.FetchedAt = f.now()
	if err != nil {
		f.logger.Error("failed to read page content", "url", pageURL, "error", err)
		return result
	}

	if len(content) < minContentLength {
		f.logger.Warn("page content seems too short", "url", pageURL, "length", len(content))
	}

	result.Markup = content
	result.HasMarkup = true
	return result
}

func (f *Fetcher) awaitReadiness(ctx context.Context, session browser.Session) (string, bool) {
	for _, sel := range f.opts.ReadinessSelectors {
		if err := session.WaitFor(ctx, sel, f.opts.ReadinessTimeout); err == nil {
			return sel, true
		}
		f.logger.Debug("readiness selector not found", "selector", sel)
	}
	return "", false
}
