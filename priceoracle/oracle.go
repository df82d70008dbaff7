// Package priceoracle caches USD prices for the native tokens of all
// configured chains, refreshing them in one batched request with TTL and
// stale-fallback behavior.
package priceoracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	commonerrors "github.com/chainpulse/gasfeed/common/errors"
	"github.com/chainpulse/gasfeed/common/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultBaseURL is the CoinGecko-compatible price API root.
	DefaultBaseURL = "https://api.coingecko.com/api/v3"
	// DefaultTTL is how long a fetched price table stays fresh.
	DefaultTTL = 120 * time.Second
	// defaultHTTPTimeout bounds one price request.
	defaultHTTPTimeout = 10 * time.Second
	// seedPrice backs tokens with no configured fallback so cost math never
	// sees a zero price.
	seedPrice = 1.0
)

// Config holds the optional oracle settings; zero values select defaults.
type Config struct {
	BaseURL     string
	TTL         time.Duration
	HTTPTimeout time.Duration
	// Now is the clock source, overridable in tests.
	Now func() time.Time
}

// Cache fetches and caches USD prices for native tokens.
//
// The cache is shared by concurrent aggregation passes: a refresh in progress
// is never duplicated, and callers arriving during one are served the current
// (possibly stale) table immediately.
type Cache struct {
	logger  *logrus.Logger
	httpc   *http.Client
	baseURL string
	ttl     time.Duration
	now     func() time.Time
	tokens  []string // Distinct token identifiers, stable order.

	mutex       sync.Mutex
	prices      map[string]float64
	lastRefresh time.Time
	populated   bool
	refreshing  bool
}

// New creates a new price cache seeded with a non-zero fallback price for
// every distinct native token of the configured chains.
//
// Parameters:
// - cfg: optional settings, zero values select defaults.
// - chains: the configured chains whose native tokens are tracked.
// - fallbackPrices: static fallback USD price per token identifier. Tokens
//   without an entry are seeded with a nominal non-zero price.
// - logger: the logger for logging events.
//
// Returns:
// - *Cache: the new cache instance.
func New(cfg Config, chains []types.ChainConfig, fallbackPrices map[string]float64, logger *logrus.Logger) *Cache {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = defaultHTTPTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	prices := make(map[string]float64)
	for _, chain := range chains {
		if chain.Token == "" {
			continue
		}
		if _, seeded := prices[chain.Token]; seeded {
			continue
		}

		fallback, ok := fallbackPrices[chain.Token]
		if !ok || fallback <= 0 {
			logger.WithField("token", chain.Token).Warn("no fallback price configured, seeding nominal value")
			fallback = seedPrice
		}
		prices[chain.Token] = fallback
	}

	tokens := make([]string, 0, len(prices))
	for token := range prices {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)

	return &Cache{
		logger:  logger,
		httpc:   &http.Client{Timeout: cfg.HTTPTimeout},
		baseURL: cfg.BaseURL,
		ttl:     cfg.TTL,
		now:     cfg.Now,
		tokens:  tokens,
		prices:  prices,
	}
}

// GetPrices returns the USD price table for all tracked tokens, refreshing it
// over the network when the TTL has lapsed. A refresh failure is absorbed:
// the last known (or fallback) prices are returned and the timestamp is not
// advanced, so the next call retries immediately.
//
// Parameters:
// - ctx: the context for managing the refresh request.
//
// Returns:
// - map[string]float64: a copy of the price table, keyed by token identifier.
func (c *Cache) GetPrices(ctx context.Context) map[string]float64 {
	c.mutex.Lock()

	fresh := c.populated && c.now().Sub(c.lastRefresh) < c.ttl
	if fresh || c.refreshing {
		snapshot := c.snapshotLocked()
		c.mutex.Unlock()
		return snapshot
	}

	c.refreshing = true
	c.mutex.Unlock()

	fetched, err := c.fetch(ctx)

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.refreshing = false

	if err != nil {
		c.logger.WithError(err).Warn("price refresh failed, serving stale prices")
		return c.snapshotLocked()
	}

	// Merge only the tokens present in the response; absent tokens keep
	// their last known value.
	for token, price := range fetched {
		if price > 0 {
			c.prices[token] = price
		}
	}
	c.lastRefresh = c.now()
	c.populated = true

	return c.snapshotLocked()
}

// LastRefresh returns the time of the last successful refresh, zero before
// the first one.
func (c *Cache) LastRefresh() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.lastRefresh
}

// snapshotLocked copies the price table. Caller must hold the mutex.
func (c *Cache) snapshotLocked() map[string]float64 {
	snapshot := make(map[string]float64, len(c.prices))
	for token, price := range c.prices {
		snapshot[token] = price
	}
	return snapshot
}

// fetch issues one batched price request for all tracked tokens.
func (c *Cache) fetch(ctx context.Context) (map[string]float64, error) {
	endpoint := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd",
		c.baseURL, url.QueryEscape(strings.Join(c.tokens, ",")))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build price request")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "price request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, commonerrors.ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("price endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read price response")
	}

	// Rate limits also arrive as a status envelope inside a 200 body.
	var envelope struct {
		Status struct {
			ErrorCode    int    `json:"error_code"`
			ErrorMessage string `json:"error_message"`
		} `json:"status"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Status.ErrorCode != 0 {
		return nil, commonerrors.ErrRateLimited
	}

	var entries map[string]struct {
		Usd float64 `json:"usd"`
	}
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, errors.Wrap(err, "failed to decode price response")
	}

	prices := make(map[string]float64, len(entries))
	for token, entry := range entries {
		prices[token] = entry.Usd
	}

	for _, token := range c.tokens {
		if _, ok := prices[token]; ok {
			return prices, nil
		}
	}

	return nil, errors.New("price response contained no tracked tokens")
}
