package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ugcscan/ugcscan-go/internal/conf"
	"github.com/ugcscan/ugcscan-go/internal/httpclient"
)

// negativeEntry marks a cached lookup miss so repeated failures for the same
// asset do not hammer the service.
const negativeEntry = ""

// Resolver maps an asset id to a renderable thumbnail URL. Results are
// memoized, misses with a shorter TTL than hits.
type Resolver struct {
	endpoint string
	size     string
	format   string
	timeout  time.Duration
	retries  int
	http     *httpclient.Client

	cache       *gocache.Cache
	negativeTTL time.Duration
}

// NewResolver creates a thumbnail resolver from the loaded settings.
func NewResolver(settings *conf.ThumbnailSettings, hc *httpclient.Client) *Resolver {
	return &Resolver{
		endpoint:    settings.Endpoint,
		size:        settings.Size,
		format:      settings.Format,
		timeout:     settings.Timeout,
		retries:     settings.Retries,
		http:        hc,
		cache:       gocache.New(settings.CacheTTL, 2*settings.CacheTTL),
		negativeTTL: settings.NegativeTTL,
	}
}

// Resolve returns the thumbnail URL for the asset, or ok=false when the
// service has no renderable thumbnail or the lookup failed. A failed lookup is
// never fatal to the caller; the item is simply unclassifiable this run.
func (r *Resolver) Resolve(ctx context.Context, assetID int64) (imageURL string, ok bool) {
	key := strconv.FormatInt(assetID, 10)
	if cached, found := r.cache.Get(key); found {
		cachedURL := cached.(string)
		return cachedURL, cachedURL != negativeEntry
	}

	imageURL, err := r.lookup(ctx, assetID)
	if err != nil {
		getLogger().Warn("thumbnail lookup failed",
			"asset_id", assetID,
			"error", err)
		r.cache.Set(key, negativeEntry, r.negativeTTL)
		return "", false
	}
	if imageURL == "" {
		getLogger().Debug("no thumbnail for asset", "asset_id", assetID)
		r.cache.Set(key, negativeEntry, r.negativeTTL)
		return "", false
	}

	r.cache.Set(key, imageURL, gocache.DefaultExpiration)
	return imageURL, true
}

func (r *Resolver) lookup(ctx context.Context, assetID int64) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= r.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(retryBackoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		imageURL, err := r.doLookup(ctx, assetID)
		if err == nil {
			return imageURL, nil
		}
		lastErr = err
	}
	return "", lastErr
}

func (r *Resolver) doLookup(ctx context.Context, assetID int64) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	params := url.Values{}
	params.Set("assetIds", strconv.FormatInt(assetID, 10))
	params.Set("size", r.size)
	params.Set("format", r.format)

	resp, err := r.http.Get(reqCtx, r.endpoint+"?"+params.Encode())
	if err != nil {
		return "", fmt.Errorf("thumbnail request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			getLogger().Warn("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("thumbnail request returned status %d", resp.StatusCode)
	}

	var lookup thumbnailResponse
	if err := json.NewDecoder(resp.Body).Decode(&lookup); err != nil {
		return "", fmt.Errorf("decoding thumbnail response: %w", err)
	}
	if len(lookup.Data) == 0 {
		return "", nil
	}
	return lookup.Data[0].ImageURL, nil
}
