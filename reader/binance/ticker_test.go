package binance

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/adshao/go-binance/v2/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptotracker/config"
	"cryptotracker/internal/metrics"
	"cryptotracker/processor"
)

const tickerFixture = `[
	{"symbol":"BTCUSDT","lastPrice":"65000.10","priceChangePercent":"2.35","highPrice":"66000","lowPrice":"64000","volume":"1234.5","quoteVolume":"80000000"},
	{"symbol":"ETHBTC","lastPrice":"0.05","priceChangePercent":"-0.4","highPrice":"0.06","lowPrice":"0.04","volume":"10","quoteVolume":"0.5"}
]`

const klineFixture = `[
	[1700006400000,"36000.0","37000.0","35500.0","36500.5","100.0",1700092799999,"3650000.0",1000,"50.0","1825000.0","0"],
	[1700092800000,"36500.5","37500.0","36000.0","bad","100.0",1700179199999,"3700000.0",1000,"50.0","1850000.0","0"],
	[1700179200000,"37000.0","38000.0","36800.0","37800.25","100.0",1700265599999,"3780000.0",1000,"50.0","1890000.0","0"]
]`

func newTestReader(t *testing.T, handler http.Handler) *TickerReader {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Source.Binance.BaseURL = srv.URL
	cfg.Source.Binance.Timeout = 2 * time.Second
	cfg.Source.Binance.RateLimit.RequestsPerSecond = 100
	cfg.Source.Binance.RateLimit.BurstSize = 100
	return NewTickerReader(&cfg)
}

func TestFetchTickers(t *testing.T) {
	r := newTestReader(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/api/v3/ticker/24hr", req.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(tickerFixture))
	}))

	tickers, err := r.FetchTickers(context.Background())
	require.NoError(t, err)
	require.Len(t, tickers, 2)
	assert.Equal(t, "BTCUSDT", tickers[0].Symbol)
	assert.Equal(t, "80000000", tickers[0].QuoteVolume)
	assert.Equal(t, "ETHBTC", tickers[1].Symbol)
}

func TestFetchTickersStatusError(t *testing.T) {
	r := newTestReader(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"code":-1003,"msg":"Too many requests."}`))
	}))

	_, err := r.FetchTickers(context.Background())
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
	assert.Equal(t, int64(-1003), se.Code)
	assert.Equal(t, "Too many requests.", se.Message)
}

func TestFetchTickersMalformedPayload(t *testing.T) {
	r := newTestReader(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte(`{"unexpected":"object"}`))
	}))

	_, err := r.FetchTickers(context.Background())
	var invalid *processor.InvalidInputError
	require.True(t, errors.As(err, &invalid))
}

func TestFetchTickersCancelled(t *testing.T) {
	r := newTestReader(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte(tickerFixture))
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.FetchTickers(ctx)
	require.Error(t, err)
}

func TestFetchChart(t *testing.T) {
	r := newTestReader(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/api/v3/klines", req.URL.Path)
		q := req.URL.Query()
		assert.Equal(t, "BTCUSDT", q.Get("symbol"))
		assert.Equal(t, "1d", q.Get("interval"))
		assert.Equal(t, "30", q.Get("limit"))
		_, _ = w.Write([]byte(klineFixture))
	}))

	points, err := r.FetchChart(context.Background(), "btcusdt")
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.Equal(t, int64(1700006400000), points[0].OpenTime)
	assert.Equal(t, "2023-11-15", points[0].Date)
	assert.InDelta(t, 36500.5, points[0].Price, 1e-9)
	assert.Equal(t, "2023-11-17", points[1].Date)
	assert.InDelta(t, 37800.25, points[1].Price, 1e-9)
}

func TestFetchChartEmptySymbol(t *testing.T) {
	r := newTestReader(t, http.NotFoundHandler())

	_, err := r.FetchChart(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptySymbol)
}

func TestFetchChartAPIError(t *testing.T) {
	r := newTestReader(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	}))

	_, err := r.FetchChart(context.Background(), "NOPEUSDT")
	require.Error(t, err)

	var apiErr *common.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, int64(-1121), apiErr.Code)
}

func TestPing(t *testing.T) {
	r := newTestReader(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/api/v3/ping", req.URL.Path)
		_, _ = w.Write([]byte(`{}`))
	}))
	assert.NoError(t, r.Ping(context.Background()))
}

func TestUsedWeightIsReported(t *testing.T) {
	var (
		mu     sync.Mutex
		events []metrics.Metric
	)
	id := metrics.RegisterMetricHandler(func(m metrics.Metric) {
		if m.Name == "used_weight" {
			mu.Lock()
			events = append(events, m)
			mu.Unlock()
		}
	})
	t.Cleanup(func() { metrics.UnregisterMetricHandler(id) })

	r := newTestReader(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("X-MBX-USED-WEIGHT-1M", "40")
		_, _ = w.Write([]byte(tickerFixture))
	}))

	_, err := r.FetchTickers(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1)
	assert.Equal(t, float64(40), events[0].Value)
	assert.Equal(t, "/api/v3/ticker/24hr", events[0].Fields["endpoint"])
}
