// Package fetch downloads job postings from job boards and extracts the
// description text. Pages that render client-side can be loaded in a
// headless browser, and results are cached.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/jonathan/candidate-matcher/internal/apperrors"
	"github.com/jonathan/candidate-matcher/internal/cache"
	"github.com/jonathan/candidate-matcher/internal/ingestion"
	"github.com/jonathan/candidate-matcher/internal/logger"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "Mozilla/5.0 (compatible; CandidateMatcher/1.0)"
	DefaultCacheTTL  = 24 * time.Hour

	// MinContentLength is the shortest extracted text accepted from a plain
	// HTTP fetch before falling back to the browser.
	MinContentLength = 500

	maxBodyBytes = 5 << 20
)

// Posting is the extracted content of a job posting page.
type Posting struct {
	URL      string   `json:"url"`
	Platform Platform `json:"platform"`
	Text     string   `json:"text"`
	Rendered bool     `json:"rendered"`
}

// Renderer returns the HTML of a page after scripts have run.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// Options configures a Fetcher.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	CacheTTL  time.Duration
	// Renderer is used when the plain fetch yields too little text. Nil
	// disables browser rendering.
	Renderer Renderer
}

// Fetcher retrieves job postings.
type Fetcher struct {
	client *http.Client
	cache  cache.Cache
	opts   Options
	log    *zap.Logger
}

// New creates a Fetcher. c may be nil to disable caching.
func New(c cache.Cache, opts Options, log *zap.Logger) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	return &Fetcher{
		client: &http.Client{Timeout: opts.Timeout},
		cache:  c,
		opts:   opts,
		log:    logger.Named(log, "fetch"),
	}
}

// IsURL reports whether s is a single absolute http(s) URL.
func IsURL(s string) bool {
	s = strings.TrimSpace(s)
	if strings.ContainsAny(s, " \n\t") {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// JobPosting fetches rawURL and returns its description text.
func (f *Fetcher) JobPosting(ctx context.Context, rawURL string) (*Posting, error) {
	const op = "fetch.JobPosting"
	rawURL = strings.TrimSpace(rawURL)
	if !IsURL(rawURL) {
		return nil, apperrors.E(apperrors.CodeInvalidArgument, op, "Job posting URL must be an absolute http(s) URL", nil)
	}
	log := f.log.With(zap.String("url", rawURL))

	key := cacheKey(rawURL)
	if f.cache != nil {
		var cached Posting
		hit, err := f.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			log.Warn("posting cache read failed", zap.Error(err))
		} else if hit && cached.Text != "" {
			log.Debug("posting cache hit")
			return &cached, nil
		}
	}

	platform := DetectPlatform(rawURL)
	html, err := f.get(ctx, rawURL)
	if err != nil {
		return nil, apperrors.E(apperrors.CodeUnavailable, op, "Job posting could not be downloaded", err)
	}
	text, err := ExtractText(html, platform)
	if err != nil {
		return nil, apperrors.E(apperrors.CodeInvalidArgument, op, "Job posting could not be read", err)
	}

	posting := &Posting{URL: rawURL, Platform: platform, Text: text}
	if len(text) < MinContentLength && f.opts.Renderer != nil {
		log.Info("posting text is short, rendering in browser", zap.Int("chars", len(text)))
		if rendered, err := f.render(ctx, rawURL, platform); err != nil {
			log.Warn("browser rendering failed", zap.Error(err))
		} else if len(rendered) > len(text) {
			posting.Text = rendered
			posting.Rendered = true
		}
	}

	if strings.TrimSpace(posting.Text) == "" {
		return nil, apperrors.E(apperrors.CodeInvalidArgument, op, "Job posting page has no readable text", nil)
	}
	if f.cache != nil {
		if err := f.cache.SetJSON(ctx, key, posting, f.opts.CacheTTL); err != nil {
			log.Warn("posting cache write failed", zap.Error(err))
		}
	}
	log.Info("job posting fetched",
		zap.String("platform", string(platform)),
		zap.Int("chars", len(posting.Text)),
		zap.Bool("rendered", posting.Rendered))
	return posting, nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	return string(body), nil
}

func (f *Fetcher) render(ctx context.Context, rawURL string, platform Platform) (string, error) {
	html, err := f.opts.Renderer.Render(ctx, rawURL)
	if err != nil {
		return "", err
	}
	return ExtractText(html, platform)
}

// ExtractText removes page chrome and returns the description text of a
// posting, using the platform's selectors and falling back to the body.
func ExtractText(html string, platform Platform) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc.Find("nav, footer, header, script, style, noscript, iframe, .sidebar, .advertisement, .popup").Remove()
	doc.Find(strings.Join(NoiseSelectors(platform), ", ")).Remove()

	var content *goquery.Selection
	for _, selector := range ContentSelectors(platform) {
		if s := doc.Find(selector); s.Length() > 0 {
			content = s.First()
			break
		}
	}
	if content == nil {
		content = doc.Find("body")
	}

	fragment, err := goquery.OuterHtml(content)
	if err != nil {
		return "", fmt.Errorf("failed to serialise content: %w", err)
	}
	return ingestion.HTMLToText(fragment)
}

func cacheKey(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return "posting:" + hex.EncodeToString(sum[:])
}
