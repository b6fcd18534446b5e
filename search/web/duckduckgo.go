// Package web implements search.Backend against the DuckDuckGo HTML endpoint.
//
// Result pages can optionally be fetched and converted to markdown so the
// deep search context carries page content instead of the short snippet.
// Page fetches run concurrently on a bounded worker pool.
package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/gist/core"
	"github.com/poiesic/gist/search"
)

const (
	// DefaultEndpoint is the DuckDuckGo HTML search page.
	DefaultEndpoint = "https://html.duckduckgo.com/html/"

	// DefaultUserAgent identifies requests to search and result pages.
	DefaultUserAgent = "Mozilla/5.0 (compatible; gist/1.0)"

	// DefaultMaxPageBytes caps how much of a result page is read.
	DefaultMaxPageBytes = 2 << 20

	redirectPrefix = "/l/?kh=-1&uddg="
)

// Client queries DuckDuckGo and optionally scrapes each result page.
type Client struct {
	httpClient   *http.Client
	endpoint     string
	userAgent    string
	scrape       bool
	maxPageBytes int64
	pool         *ants.Pool
	logger       *slog.Logger
}

var _ search.Backend = (*Client)(nil)

// Option configures a Client.
type Option func(*Client) error

// WithHTTPClient sets the HTTP client for search and page requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) error {
		if client == nil {
			return errors.New("http client cannot be nil")
		}
		c.httpClient = client
		return nil
	}
}

// WithEndpoint overrides the search endpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) error {
		if _, err := url.Parse(endpoint); err != nil || endpoint == "" {
			return fmt.Errorf("invalid search endpoint %q", endpoint)
		}
		c.endpoint = endpoint
		return nil
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) error {
		if ua != "" {
			c.userAgent = ua
		}
		return nil
	}
}

// WithScrape enables fetching each result page and using its markdown as the snippet.
func WithScrape(enabled bool) Option {
	return func(c *Client) error {
		c.scrape = enabled
		return nil
	}
}

// WithWorkers sets the number of concurrent page fetches.
// Default is 4, with a minimum of 1.
func WithWorkers(n int) Option {
	return func(c *Client) error {
		if n < 1 {
			n = 1
		}
		if c.pool != nil {
			c.pool.Release()
		}
		pool, err := ants.NewPool(n)
		if err != nil {
			return err
		}
		c.pool = pool
		return nil
	}
}

// WithMaxPageBytes caps the bytes read from each scraped page.
func WithMaxPageBytes(n int64) Option {
	return func(c *Client) error {
		if n > 0 {
			c.maxPageBytes = n
		}
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}

// New creates a DuckDuckGo client. Call Release when done.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		endpoint:     DefaultEndpoint,
		userAgent:    DefaultUserAgent,
		maxPageBytes: DefaultMaxPageBytes,
		logger:       slog.Default().With("component", "web"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			c.Release()
			return nil, err
		}
	}
	if c.pool == nil {
		pool, err := ants.NewPool(4)
		if err != nil {
			return nil, err
		}
		c.pool = pool
	}
	return c, nil
}

// Release frees the worker pool. The client should not be used afterwards.
func (c *Client) Release() {
	if c.pool != nil {
		c.pool.Release()
		c.pool = nil
	}
}

// Search returns up to limit results for query in page order.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]core.SearchHit, error) {
	if limit <= 0 {
		limit = search.DefaultLimit
	}

	queryURL := c.endpoint + "?q=" + url.QueryEscape(query)
	req, err := c.newRequest(ctx, queryURL)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search endpoint responded with %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}

	hits := parseResults(doc, limit)
	c.logger.Debug("search results parsed", "query", query, "hits", len(hits))

	if c.scrape && len(hits) > 0 {
		c.scrapeAll(ctx, hits)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return hits, nil
}

func (c *Client) newRequest(ctx context.Context, target string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	return req, nil
}

// parseResults reads result blocks from a DuckDuckGo HTML page.
func parseResults(doc *goquery.Document, limit int) []core.SearchHit {
	hits := make([]core.SearchHit, 0, limit)
	doc.Find(".web-result").EachWithBreak(func(_ int, node *goquery.Selection) bool {
		if len(hits) == limit {
			return false
		}
		title := node.Find(".result__a").First()
		href, _ := title.Attr("href")
		hits = append(hits, core.SearchHit{
			Title:   collapseSpace(title.Text()),
			URL:     resolveLink(href),
			Snippet: collapseSpace(node.Find(".result__snippet").Text()),
		})
		return true
	})
	return hits
}

// resolveLink unwraps DuckDuckGo's redirect links to the target URL.
func resolveLink(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" && strings.HasPrefix(u.Path, "/l/") {
		return target
	}
	if strings.HasPrefix(href, redirectPrefix) {
		if target, err := url.QueryUnescape(strings.TrimPrefix(href, redirectPrefix)); err == nil {
			return target
		}
	}
	return href
}

// scrapeAll replaces each hit's snippet with its page content when the
// page can be fetched and yields text. Failures keep the original snippet.
func (c *Client) scrapeAll(ctx context.Context, hits []core.SearchHit) {
	var wg sync.WaitGroup
	for i := range hits {
		if hits[i].URL == "" {
			continue
		}
		wg.Add(1)
		err := c.pool.Submit(func() {
			defer wg.Done()
			content, err := c.scrapePage(ctx, hits[i].URL)
			if err != nil {
				c.logger.Debug("page scrape failed, keeping snippet", "url", hits[i].URL, "err", err)
				return
			}
			if !core.IsBlank(content) {
				hits[i].Snippet = content
			}
		})
		if err != nil {
			wg.Done()
			c.logger.Warn("failed to schedule page scrape", "url", hits[i].URL, "err", err)
		}
	}
	wg.Wait()
}

func (c *Client) scrapePage(ctx context.Context, pageURL string) (string, error) {
	req, err := c.newRequest(ctx, pageURL)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page responded with %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return "", fmt.Errorf("unsupported content type %q", ct)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, c.maxPageBytes))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript, nav, header, footer, iframe, svg, form").Remove()

	body := doc.Find("main").First()
	if body.Length() == 0 {
		body = doc.Find("article").First()
	}
	if body.Length() == 0 {
		body = doc.Find("body")
	}

	converter := md.NewConverter(pageURL, true, nil)
	return strings.TrimSpace(converter.Convert(body)), nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
