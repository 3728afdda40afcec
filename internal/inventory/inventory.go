// Package inventory exports the asset ids of a user's inventory, paged
// through the inventory service the same way the catalog client pages search
// results.
package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

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
		serviceLogger = logging.ForService("inventory")
	})
	return serviceLogger
}

// inventoryResponse is one page of a user's inventory.
type inventoryResponse struct {
	Data []struct {
		AssetID int64 `json:"assetId"`
	} `json:"data"`
	NextPageCursor *string `json:"nextPageCursor"`
}

// Client pages a user's inventory by asset type.
type Client struct {
	endpoint  string
	pageSize  int
	timeout   time.Duration
	assetType int
	http      *httpclient.Client
}

// NewClient creates an inventory client from the loaded settings.
func NewClient(settings *conf.InventorySettings, hc *httpclient.Client) *Client {
	return &Client{
		endpoint:  settings.Endpoint,
		pageSize:  settings.PageSize,
		timeout:   settings.Timeout,
		assetType: settings.AssetType,
		http:      hc,
	}
}

// AssetIDs fetches every asset id of the configured type in the user's
// inventory, following the continuation cursor until the service reports no
// further pages.
func (c *Client) AssetIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	var cursor string

	for {
		page, err := c.fetchPage(ctx, userID, cursor)
		if err != nil {
			return ids, fmt.Errorf("fetching inventory page for user %d: %w", userID, err)
		}
		for i := range page.Data {
			ids = append(ids, page.Data[i].AssetID)
		}
		if page.NextPageCursor == nil || *page.NextPageCursor == "" {
			break
		}
		cursor = *page.NextPageCursor
	}

	getLogger().Debug("inventory export finished", "user_id", userID, "assets", len(ids))
	return ids, nil
}

func (c *Client) fetchPage(ctx context.Context, userID int64, cursor string) (*inventoryResponse, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := url.Values{}
	params.Set("limit", strconv.Itoa(c.pageSize))
	if cursor != "" {
		params.Set("cursor", cursor)
	}
	endpoint := fmt.Sprintf("%s/%d/inventory/%d?%s", c.endpoint, userID, c.assetType, params.Encode())

	resp, err := c.http.Get(reqCtx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("inventory request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			getLogger().Warn("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inventory request returned status %d", resp.StatusCode)
	}

	var page inventoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decoding inventory response: %w", err)
	}
	return &page, nil
}

// WriteIDs saves the asset ids one per line to path.
func WriteIDs(path string, ids []int64) error {
	var b strings.Builder
	for _, id := range ids {
		b.WriteString(strconv.FormatInt(id, 10))
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing asset ids to %s: %w", path, err)
	}
	return nil
}
