package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	gobinance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"golang.org/x/time/rate"

	"cryptotracker/config"
	"cryptotracker/internal/metrics"
	"cryptotracker/logger"
	"cryptotracker/models"
	"cryptotracker/processor"
)

const (
	component      = "binance_reader"
	tickerEndpoint = "/api/v3/ticker/24hr"
	maxBodyBytes   = 16 << 20
	chartDate      = "2006-01-02"
)

// ErrEmptySymbol is returned by FetchChart when no symbol is given.
var ErrEmptySymbol = errors.New("symbol is required")

// StatusError is a non-2xx answer from the exchange.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Code       int64
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("binance %s: status %d: %s (code %d)", e.Endpoint, e.StatusCode, e.Message, e.Code)
	}
	return fmt.Sprintf("binance %s: status %d", e.Endpoint, e.StatusCode)
}

// TickerReader fetches 24h ticker statistics and daily klines from the
// Binance spot REST API.
type TickerReader struct {
	client        *gobinance.Client
	limiter       *rate.Limiter
	log           *logger.Log
	chartInterval string
	chartLimit    int
}

// NewTickerReader builds a reader with a pooled HTTP client shared by raw
// requests and the SDK services.
func NewTickerReader(cfg *config.Config) *TickerReader {
	log := logger.GetLogger()
	src := cfg.Source.Binance

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        src.ConnectionPool.MaxIdleConns,
		MaxIdleConnsPerHost: src.ConnectionPool.MaxIdleConns,
		MaxConnsPerHost:     src.ConnectionPool.MaxConnsPerHost,
		IdleConnTimeout:     src.ConnectionPool.IdleConnTimeout,
	}

	client := gobinance.NewClient("", "")
	client.HTTPClient = &http.Client{
		Transport: &weightTransport{base: transport, log: log},
		Timeout:   src.Timeout,
	}
	if src.BaseURL != "" {
		client.BaseURL = strings.TrimRight(src.BaseURL, "/")
	}

	burst := src.RateLimit.BurstSize
	if burst <= 0 {
		burst = 1
	}

	r := &TickerReader{
		client:        client,
		limiter:       rate.NewLimiter(rate.Limit(src.RateLimit.RequestsPerSecond), burst),
		log:           log,
		chartInterval: cfg.Market.ChartInterval,
		chartLimit:    cfg.Market.ChartLimit,
	}

	log.WithComponent(component).WithFields(logger.Fields{
		"base_url":           client.BaseURL,
		"max_idle_conns":     src.ConnectionPool.MaxIdleConns,
		"max_conns_per_host": src.ConnectionPool.MaxConnsPerHost,
		"timeout":            src.Timeout,
		"requests_per_sec":   src.RateLimit.RequestsPerSecond,
	}).Info("binance reader initialized")

	return r
}

// FetchTickers downloads the 24h statistics of every pair.
func (r *TickerReader) FetchTickers(ctx context.Context) (tickers []models.RawTicker, err error) {
	log := r.log.WithComponent(component).WithFields(logger.Fields{"operation": "fetch_tickers"})

	start := time.Now()
	size := 0
	defer func() {
		metrics.ObserveFetch(metrics.SourceTickers, time.Since(start), err)
		logger.IncrementTickerFetch(size, err)
	}()

	if err = r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("fetch tickers: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.client.BaseURL+tickerEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch tickers: build request: %w", err)
	}

	resp, err := r.client.HTTPClient.Do(req)
	if err != nil {
		log.WithError(err).Warn("failed to fetch tickers")
		return nil, fmt.Errorf("fetch tickers: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		log.WithError(err).Warn("failed to read ticker response")
		return nil, fmt.Errorf("fetch tickers: read body: %w", err)
	}
	size = len(body)

	logger.LogPerformanceEntry(log, component, "api_request", time.Since(start), logger.Fields{
		"endpoint": tickerEndpoint,
		"status":   resp.StatusCode,
		"bytes":    size,
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := statusError(tickerEndpoint, resp.StatusCode, body)
		metrics.ReportLimit(r.log, tickerEndpoint, se.StatusCode, se.Code, se.Message)
		log.WithError(se).Warn("unexpected ticker response")
		err = se
		return nil, err
	}

	tickers, err = processor.DecodeTickers(body)
	if err != nil {
		log.WithError(err).Warn("failed to decode tickers")
		return nil, err
	}

	logger.LogDataFlowEntry(log, "binance_api", "normalizer", len(tickers), "ticker_24hr")
	return tickers, nil
}

// FetchChart returns the daily closing prices of symbol, oldest first.
// Candles whose close price cannot be parsed are skipped.
func (r *TickerReader) FetchChart(ctx context.Context, symbol string) (points []models.ChartPoint, err error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, ErrEmptySymbol
	}

	log := r.log.WithComponent(component).WithFields(logger.Fields{
		"operation": "fetch_chart",
		"symbol":    symbol,
	})

	start := time.Now()
	defer func() {
		metrics.ObserveFetch(metrics.SourceChart, time.Since(start), err)
		logger.IncrementChartFetch(err)
	}()

	if err = r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("fetch chart %s: %w", symbol, err)
	}

	klines, err := r.client.NewKlinesService().
		Symbol(symbol).
		Interval(r.chartInterval).
		Limit(r.chartLimit).
		Do(ctx)
	if err != nil {
		r.reportAPIError(log, "klines", err)
		return nil, fmt.Errorf("fetch chart %s: %w", symbol, err)
	}

	logger.LogPerformanceEntry(log, component, "api_request", time.Since(start), logger.Fields{
		"endpoint": "/api/v3/klines",
		"candles":  len(klines),
	})

	points = make([]models.ChartPoint, 0, len(klines))
	for _, k := range klines {
		if k == nil {
			continue
		}
		price, perr := strconv.ParseFloat(k.Close, 64)
		if perr != nil {
			log.WithFields(logger.Fields{"open_time": k.OpenTime, "close": k.Close}).Debug("skipping candle with unparseable close")
			continue
		}
		points = append(points, models.ChartPoint{
			OpenTime: k.OpenTime,
			Date:     time.UnixMilli(k.OpenTime).UTC().Format(chartDate),
			Price:    price,
		})
	}
	return points, nil
}

// Ping checks that the exchange is reachable.
func (r *TickerReader) Ping(ctx context.Context) error {
	if err := r.client.NewPingService().Do(ctx); err != nil {
		r.reportAPIError(r.log.WithComponent(component), "ping", err)
		return fmt.Errorf("ping binance: %w", err)
	}
	return nil
}

func (r *TickerReader) reportAPIError(log *logger.Entry, endpoint string, err error) {
	var apiErr *common.APIError
	if common.IsAPIError(err) && errors.As(err, &apiErr) {
		metrics.ReportLimit(r.log, endpoint, 0, apiErr.Code, apiErr.Message)
		log.WithFields(logger.Fields{"code": apiErr.Code, "endpoint": endpoint}).WithError(err).Warn("binance api error")
		return
	}
	log.WithField("endpoint", endpoint).WithError(err).Warn("binance request failed")
}

func statusError(endpoint string, status int, body []byte) *StatusError {
	e := &StatusError{Endpoint: endpoint, StatusCode: status}
	var apiErr common.APIError
	if json.Unmarshal(body, &apiErr) == nil {
		e.Code = apiErr.Code
		e.Message = apiErr.Message
	}
	return e
}

// weightTransport reports the used-weight headers of every exchange response.
type weightTransport struct {
	base http.RoundTripper
	log  *logger.Log
}

func (t *weightTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	metrics.ReportUsedWeight(t.log, resp.Header, req.URL.Path)
	return resp, nil
}
