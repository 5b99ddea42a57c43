// Package llama provides a DefiLlama price feed client.
package llama

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/cooler-keeper/business/pricing/domain"
	"github.com/fd1az/cooler-keeper/internal/apperror"
	"github.com/fd1az/cooler-keeper/internal/cache"
	"github.com/fd1az/cooler-keeper/internal/circuitbreaker"
	"github.com/fd1az/cooler-keeper/internal/httpclient"
	"github.com/fd1az/cooler-keeper/internal/logger"
	"github.com/fd1az/cooler-keeper/internal/ratelimit"
)

const (
	tracerName = "github.com/fd1az/cooler-keeper/business/pricing/infra/llama"
	meterName  = "github.com/fd1az/cooler-keeper/business/pricing/infra/llama"

	// DefiLlama coins API
	BaseAPIURL           = "https://coins.llama.fi"
	currentPriceEndpoint = "/prices/current/coingecko:%s"

	httpTimeout = 10 * time.Second
)

// ClientConfig holds configuration for the DefiLlama client.
type ClientConfig struct {
	BaseURL           string        // API base URL (empty = default)
	Timeout           time.Duration // Request timeout
	CacheTTL          time.Duration // How long fetched prices stay fresh
	RequestsPerMinute int           // Outbound rate limit
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:           BaseAPIURL,
		Timeout:           httpTimeout,
		CacheTTL:          60 * time.Second,
		RequestsPerMinute: 30,
	}
}

// clientMetrics holds OTEL metric instruments.
type clientMetrics struct {
	priceFetches metric.Int64Counter
	priceUSD     metric.Float64Gauge
	cacheHits    metric.Int64Counter
}

// Client fetches USD prices from DefiLlama's coins API. It implements
// the pricing PriceSource port.
type Client struct {
	client httpclient.Client
	config ClientConfig
	logger logger.LoggerInterface

	priceCache *cache.Cache[string, *domain.Price]
	limiter    *ratelimit.Limiter
	cb         *circuitbreaker.CircuitBreaker[*coinEntry]

	tracer  trace.Tracer
	metrics *clientMetrics
}

// NewClient creates a new DefiLlama client.
func NewClient(cfg ClientConfig, log logger.LoggerInterface) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = BaseAPIURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = httpTimeout
	}

	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 60 * time.Second
	}
	if cfg.RequestsPerMinute == 0 {
		cfg.RequestsPerMinute = 30
	}

	tracer := otel.Tracer(tracerName)

	httpc, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("defillama"),
		httpclient.WithBaseURL(baseURL),
		httpclient.WithRequestTimeout(timeout),
		httpclient.WithTracer(tracer),
		httpclient.WithHeaders(map[string]string{
			"Accept": "application/json",
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	c := &Client{
		client:     httpc,
		config:     cfg,
		logger:     log,
		priceCache: cache.New[string, *domain.Price](5 * time.Minute),
		limiter:    ratelimit.New(cfg.RequestsPerMinute),
		cb:         circuitbreaker.New[*coinEntry](circuitbreaker.DefaultConfig("defillama")),
		tracer:     tracer,
	}

	if err := c.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return c, nil
}

func (c *Client) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	c.metrics = &clientMetrics{}

	c.metrics.priceFetches, err = meter.Int64Counter(
		"price_fetches_total",
		metric.WithDescription("Total price fetch attempts against DefiLlama"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return err
	}

	c.metrics.priceUSD, err = meter.Float64Gauge(
		"coin_price_usd",
		metric.WithDescription("Last fetched USD price per coin"),
		metric.WithUnit("USD"),
	)
	if err != nil {
		return err
	}

	c.metrics.cacheHits, err = meter.Int64Counter(
		"price_cache_hits_total",
		metric.WithDescription("Price cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// coinEntry mirrors a single coin in the DefiLlama response.
type coinEntry struct {
	Decimals   int     `json:"decimals"`
	Symbol     string  `json:"symbol"`
	Price      float64 `json:"price"`
	Timestamp  int64   `json:"timestamp"`
	Confidence float64 `json:"confidence"`
}

// currentPriceResponse is the response envelope of /prices/current.
type currentPriceResponse struct {
	Coins map[string]coinEntry `json:"coins"`
}

// PriceUSD returns the current USD price for the given coingecko coin id.
// Results are cached for the configured TTL so a burst of evaluations does
// not hammer the API.
func (c *Client) PriceUSD(ctx context.Context, coinID string) (*domain.Price, error) {
	ctx, span := c.tracer.Start(ctx, "llama.price_usd",
		trace.WithAttributes(attribute.String("coin", coinID)),
	)
	defer span.End()

	if price, found := c.priceCache.Get(ctx, coinID); found {
		c.metrics.cacheHits.Add(ctx, 1)
		span.AddEvent("cache_hit")
		return price, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		span.RecordError(err)
		return nil, apperror.New(apperror.CodeRateLimitExceeded,
			apperror.WithCause(err),
			apperror.WithContext("rate limit wait aborted"))
	}

	c.metrics.priceFetches.Add(ctx, 1)

	entry, err := c.cb.Execute(func() (*coinEntry, error) {
		return c.fetch(ctx, coinID)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		if apperror.IsAppError(err) {
			return nil, err
		}
		return nil, apperror.New(apperror.CodePriceFetchFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to fetch price for "+coinID))
	}

	price := domain.NewPrice(coinID, decimal.NewFromFloat(entry.Price), entry.Confidence)

	c.priceCache.Set(ctx, coinID, price, c.config.CacheTTL)
	c.metrics.priceUSD.Record(ctx, entry.Price, metric.WithAttributes(attribute.String("coin", coinID)))

	span.SetAttributes(attribute.Float64("usd", entry.Price))
	span.SetStatus(codes.Ok, "fetched")

	c.logger.Debug(ctx, "fetched coin price",
		"coin", coinID,
		"usd", entry.Price,
		"confidence", entry.Confidence)

	return price, nil
}

func (c *Client) fetch(ctx context.Context, coinID string) (*coinEntry, error) {
	var result currentPriceResponse
	resp, err := c.client.NewRequest().
		SetResult(&result).
		Get(ctx, fmt.Sprintf(currentPriceEndpoint, coinID))
	if err != nil {
		return nil, err
	}

	if resp.IsError() {
		return nil, apperror.New(apperror.CodePriceFetchFailed,
			apperror.WithContext(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.String())))
	}

	entry, ok := result.Coins["coingecko:"+coinID]
	if !ok {
		return nil, apperror.New(apperror.CodePriceFetchFailed,
			apperror.WithContext("coin missing from response: "+coinID))
	}
	if entry.Price <= 0 {
		return nil, apperror.New(apperror.CodePriceFetchFailed,
			apperror.WithContext("non-positive price for "+coinID))
	}

	return &entry, nil
}

// Close releases the cache cleanup goroutine.
func (c *Client) Close() error {
	c.priceCache.Close()
	return nil
}
