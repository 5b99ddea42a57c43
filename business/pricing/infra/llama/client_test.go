package llama

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/cooler-keeper/internal/apperror"
	"github.com/fd1az/cooler-keeper/internal/logger"
)

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultClientConfig()
	cfg.BaseURL = srv.URL
	cfg.RequestsPerMinute = 6000 // no throttling in tests

	log := logger.New(testWriter{t}, logger.LevelDebug, "test", nil)
	client, err := NewClient(cfg, log)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })

	return client, srv
}

func TestPriceUSD(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/prices/current/coingecko:governance-ohm" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"coins":{"coingecko:governance-ohm":{"decimals":18,"symbol":"GOHM","price":2897.43,"timestamp":1709300000,"confidence":0.99}}}`)
	})

	price, err := client.PriceUSD(context.Background(), "governance-ohm")
	if err != nil {
		t.Fatalf("PriceUSD() error = %v", err)
	}

	if !price.USD.Equal(decimal.RequireFromString("2897.43")) {
		t.Errorf("USD = %s, want 2897.43", price.USD)
	}
	if price.Coin != "governance-ohm" {
		t.Errorf("Coin = %s, want governance-ohm", price.Coin)
	}
	if price.Confidence != 0.99 {
		t.Errorf("Confidence = %v, want 0.99", price.Confidence)
	}
}

func TestPriceUSDCachesWithinTTL(t *testing.T) {
	var hits int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		fmt.Fprint(w, `{"coins":{"coingecko:ethereum":{"symbol":"ETH","price":4000,"timestamp":1709300000,"confidence":0.99}}}`)
	})

	for i := 0; i < 3; i++ {
		if _, err := client.PriceUSD(context.Background(), "ethereum"); err != nil {
			t.Fatalf("PriceUSD() error = %v", err)
		}
	}

	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("upstream hits = %d, want 1 (cached)", got)
	}
}

func TestPriceUSDMissingCoin(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"coins":{}}`)
	})

	_, err := client.PriceUSD(context.Background(), "no-such-coin")
	if !apperror.IsCode(err, apperror.CodePriceFetchFailed) {
		t.Errorf("error = %v, want %s", err, apperror.CodePriceFetchFailed)
	}
}

func TestPriceUSDNonPositivePrice(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"coins":{"coingecko:ethereum":{"symbol":"ETH","price":0,"timestamp":1709300000,"confidence":0.5}}}`)
	})

	_, err := client.PriceUSD(context.Background(), "ethereum")
	if !apperror.IsCode(err, apperror.CodePriceFetchFailed) {
		t.Errorf("error = %v, want %s", err, apperror.CodePriceFetchFailed)
	}
}

func TestPriceUSDUpstreamError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusBadGateway)
	})

	_, err := client.PriceUSD(context.Background(), "ethereum")
	if err == nil {
		t.Fatal("expected error on HTTP 502")
	}
}

func TestPriceStaleness(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"coins":{"coingecko:ethereum":{"symbol":"ETH","price":4000,"timestamp":1709300000,"confidence":0.99}}}`)
	})

	price, err := client.PriceUSD(context.Background(), "ethereum")
	if err != nil {
		t.Fatalf("PriceUSD() error = %v", err)
	}
	if price.IsStale(time.Minute) {
		t.Error("freshly fetched price should not be stale")
	}
}
