package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/alejandrodnm/agrisim/internal/domain"
)

const (
	// DefaultRatePerSec es el límite de peticiones por segundo si no se configura otro.
	DefaultRatePerSec = 12
	defaultBurst      = 4

	defaultRetryMax     = 3
	defaultRetryWaitMin = 500 * time.Millisecond
	defaultRetryWaitMax = 3 * time.Second
	defaultTimeout      = 10 * time.Second
)

// Config configura el cliente HTTP de precios.
type Config struct {
	BaseURL      string
	RatePerSec   float64
	Burst        int
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Timeout      time.Duration
}

func (c Config) withDefaults() Config {
	if c.RatePerSec <= 0 {
		c.RatePerSec = DefaultRatePerSec
	}
	if c.Burst <= 0 {
		c.Burst = defaultBurst
	}
	if c.RetryMax <= 0 {
		c.RetryMax = defaultRetryMax
	}
	if c.RetryWaitMin <= 0 {
		c.RetryWaitMin = defaultRetryWaitMin
	}
	if c.RetryWaitMax <= 0 {
		c.RetryWaitMax = defaultRetryWaitMax
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	return c
}

// Client es el cliente HTTP del feed de precios con rate limiting y retries.
// Implements ports.MarketDataProvider.
type Client struct {
	http *retryablehttp.Client
	base string
}

// NewClient crea un Client. 429 and 5xx responses are retried with
// exponential backoff; every attempt, retries included, waits on the limiter.
func NewClient(cfg Config) *Client {
	cfg = cfg.withDefaults()

	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.RetryMax
	rc.RetryWaitMin = cfg.RetryWaitMin
	rc.RetryWaitMax = cfg.RetryWaitMax
	rc.Logger = nil
	rc.HTTPClient = &http.Client{
		Timeout: cfg.Timeout,
		Transport: &limitedTransport{
			next:    http.DefaultTransport,
			limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
		},
	}
	rc.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt > 0 {
			slog.Warn("retrying market data request", "path", req.URL.Path, "attempt", attempt)
		}
	}

	return &Client{http: rc, base: cfg.BaseURL}
}

// limitedTransport espera al limiter antes de cada round trip.
type limitedTransport struct {
	next    http.RoundTripper
	limiter *rate.Limiter
}

func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	return t.next.RoundTrip(req)
}

// ── wire types ────────────────────────────────────────────────────────────

type priceDTO struct {
	Product string    `json:"product"`
	Region  string    `json:"region"`
	Value   float64   `json:"value"`
	Unit    string    `json:"unit"`
	AsOf    time.Time `json:"as_of"`
}

func (p priceDTO) toDomain() domain.Price {
	return domain.Price{Product: p.Product, Region: p.Region, Value: p.Value, Unit: p.Unit, AsOf: p.AsOf}
}

type historyResponse struct {
	Prices []priceDTO `json:"prices"`
}

type commoditiesResponse struct {
	Prices map[string]priceDTO `json:"prices"`
}

// ── MarketDataProvider ────────────────────────────────────────────────────

// CurrentPrice pide GET /prices/current. A 404 means no quote.
func (c *Client) CurrentPrice(ctx context.Context, product, region string) (domain.Price, bool, error) {
	q := url.Values{"product": {product}, "region": {region}}
	var dto priceDTO
	found, err := c.get(ctx, "/prices/current", q, &dto)
	if err != nil {
		return domain.Price{}, false, fmt.Errorf("marketdata.CurrentPrice: %s: %w", product, err)
	}
	if !found {
		return domain.Price{}, false, nil
	}
	p := dto.toDomain()
	if p.Product == "" {
		p.Product = product
	}
	if p.Region == "" {
		p.Region = region
	}
	return p, true, nil
}

// PriceHistory pide GET /prices/history. The result is sorted oldest first.
func (c *Client) PriceHistory(ctx context.Context, product, region string, days int) ([]domain.Price, error) {
	q := url.Values{"product": {product}, "region": {region}, "days": {strconv.Itoa(days)}}
	var resp historyResponse
	found, err := c.get(ctx, "/prices/history", q, &resp)
	if err != nil {
		return nil, fmt.Errorf("marketdata.PriceHistory: %s: %w", product, err)
	}
	if !found {
		return nil, nil
	}
	out := make([]domain.Price, 0, len(resp.Prices))
	for _, p := range resp.Prices {
		out = append(out, p.toDomain())
	}
	sortByAsOf(out)
	if days > 0 && len(out) > days {
		out = out[len(out)-days:]
	}
	return out, nil
}

// CommodityPrices pide GET /commodities. Crops without a quote are left out.
func (c *Client) CommodityPrices(ctx context.Context, crops []string, region string) (map[string]domain.Price, error) {
	q := url.Values{"crops": {strings.Join(crops, ",")}, "region": {region}}
	var resp commoditiesResponse
	found, err := c.get(ctx, "/commodities", q, &resp)
	if err != nil {
		return nil, fmt.Errorf("marketdata.CommodityPrices: %w", err)
	}
	out := make(map[string]domain.Price, len(crops))
	if !found {
		return out, nil
	}
	for _, crop := range crops {
		dto, ok := resp.Prices[crop]
		if !ok || dto.Value <= 0 {
			continue
		}
		p := dto.toDomain()
		p.Product = crop
		out[crop] = p
	}
	return out, nil
}

// get hace un GET y decodifica el JSON en out. found=false on 404.
func (c *Client) get(ctx context.Context, path string, q url.Values, out any) (bool, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.base+path+"?"+q.Encode(), nil)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, fmt.Errorf("client error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}
	return true, nil
}
