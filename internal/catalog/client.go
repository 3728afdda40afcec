// Package catalog implements the clients for the catalog search and thumbnail
// lookup services.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ugcscan/ugcscan-go/internal/conf"
	"github.com/ugcscan/ugcscan-go/internal/httpclient"
	"github.com/ugcscan/ugcscan-go/internal/logging"
)

var (
	serviceLogger *slog.Logger
	loggerOnce    sync.Once
)

func getLogger() *slog.Logger {
	loggerOnce.Do(func() {
		serviceLogger = logging.ForService("catalog")
	})
	return serviceLogger
}

// retryBackoff is the pause before the retry of a failed fetch. Variable so
// tests do not have to wait it out.
var retryBackoff = 2 * time.Second

// Client searches the catalog service with keyword queries, following the
// opaque continuation cursor across pages.
type Client struct {
	endpoint string
	pageSize int
	timeout  time.Duration
	retries  int
	http     *httpclient.Client
	limiter  *rate.Limiter

	pageObserver func() // optional, invoked per successful page fetch
}

// NewClient creates a catalog search client from the loaded settings.
func NewClient(settings *conf.CatalogSettings, hc *httpclient.Client) *Client {
	// The limiter grants the first page immediately and paces the rest at
	// one page per configured delay.
	limit := rate.Inf
	if settings.PageDelay > 0 {
		limit = rate.Every(settings.PageDelay)
	}
	return &Client{
		endpoint: settings.Endpoint,
		pageSize: settings.PageSize,
		timeout:  settings.Timeout,
		retries:  settings.Retries,
		http:     hc,
		limiter:  rate.NewLimiter(limit, 1),
	}
}

// PageSize returns the configured page size.
func (c *Client) PageSize() int {
	return c.pageSize
}

// SetPageObserver installs a callback invoked after every successful page
// fetch, used for metrics.
func (c *Client) SetPageObserver(fn func()) {
	c.pageObserver = fn
}

// Search fetches up to limit items for the keyword, page by page. It stops
// when the limit is reached, the service returns no continuation cursor, or
// the per-keyword page budget of ceil(limit/pageSize) fetches is spent.
//
// A page fetch that still fails after retries ends pagination for the keyword;
// the items accumulated so far are returned together with the error so the
// caller can process the partial result.
func (c *Client) Search(ctx context.Context, keyword string, limit int) ([]Item, error) {
	var items []Item
	var cursor string

	pageBudget := (limit + c.pageSize - 1) / c.pageSize
	for page := 0; page < pageBudget; page++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return items, err
		}

		resp, err := c.fetchPage(ctx, keyword, cursor)
		if err != nil {
			getLogger().Warn("catalog page fetch failed, aborting keyword",
				"keyword", keyword,
				"page", page,
				"error", err)
			return items, fmt.Errorf("fetching catalog page for %q: %w", keyword, err)
		}

		if c.pageObserver != nil {
			c.pageObserver()
		}

		items = append(items, resp.Data...)
		if len(items) >= limit {
			items = items[:limit]
			break
		}
		if resp.NextPageCursor == nil || *resp.NextPageCursor == "" {
			break
		}
		cursor = *resp.NextPageCursor
	}

	getLogger().Debug("keyword search finished",
		"keyword", keyword,
		"items", len(items))
	return items, nil
}

// fetchPage requests a single page, retrying transient failures once per
// configured retry.
func (c *Client) fetchPage(ctx context.Context, keyword, cursor string) (*searchResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(retryBackoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		resp, err := c.doFetch(ctx, keyword, cursor)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (c *Client) doFetch(ctx context.Context, keyword, cursor string) (*searchResponse, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := url.Values{}
	params.Set("keyword", keyword)
	params.Set("limit", strconv.Itoa(c.pageSize))
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	resp, err := c.http.Get(reqCtx, c.endpoint+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("catalog request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			getLogger().Warn("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog request returned status %d", resp.StatusCode)
	}

	var page searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decoding catalog response: %w", err)
	}
	return &page, nil
}
