package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"crypto-price-tracker/internal/market"
)

// CoinGeckoOptions parameterise the markets fetcher.
type CoinGeckoOptions struct {
	BaseURL string
	// APIKey is the demo-plan API key. Empty and the placeholder value
	// "demo" both mean unauthenticated access; the key parameter is then
	// omitted from requests entirely.
	APIKey string
	VsCurrency string
	Order      string
	PerPage    int
	Timeout    time.Duration
	UserAgent  string
}

// CoinGecko fetches market snapshots from a CoinGecko-compatible API.
type CoinGecko struct {
	opts    CoinGeckoOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewCoinGecko constructs a markets fetcher.
func NewCoinGecko(opts CoinGeckoOptions, logger zerolog.Logger) *CoinGecko {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3/coins/markets"
	}

	if opts.VsCurrency == "" {
		opts.VsCurrency = "usd"
	}
	if opts.Order == "" {
		opts.Order = "market_cap_desc"
	}
	if opts.PerPage <= 0 {
		opts.PerPage = 10
	}

	return &CoinGecko{
		opts:    opts,
		logger:  logger.With().Str("component", "coingecko_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// FetchSnapshots retrieves the markets page and normalizes it into snapshots.
// The capture timestamp is assigned once, before the batch is decoded, so all
// snapshots of one cycle carry the same timestamp.
func (c *CoinGecko) FetchSnapshots(ctx context.Context) ([]market.PriceSnapshot, error) {
	query := url.Values{}
	query.Set("vs_currency", c.opts.VsCurrency)
	query.Set("order", c.opts.Order)
	query.Set("per_page", strconv.Itoa(c.opts.PerPage))
	query.Set("page", "1")
	query.Set("sparkline", "true")
	query.Set("price_change_percentage", "1h,24h,7d")
	// "demo" is the unconfigured placeholder, treated the same as no key.
	if key := strings.TrimSpace(c.opts.APIKey); key != "" && key != "demo" {
		query.Set("x_cg_demo_api_key", key)
	}

	endpoint := c.baseURL + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create markets request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	capturedAt := time.Now().UTC()

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", market.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %s", market.ErrProviderUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d: %s", market.ErrProviderUnavailable, resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	snapshots, err := Normalize(payload, capturedAt)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().Int("count", len(snapshots)).Msg("fetched market snapshots")
	return snapshots, nil
}

var _ Provider = (*CoinGecko)(nil)
