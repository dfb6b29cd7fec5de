package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"cryptotracker/config"
	"cryptotracker/internal/metrics"
	"cryptotracker/logger"
	"cryptotracker/models"
	"cryptotracker/processor"
)

const component = "refresher"

// TickerSource supplies raw 24h ticker records.
type TickerSource interface {
	FetchTickers(ctx context.Context) ([]models.RawTicker, error)
}

// Refresher pulls tickers from a source, normalizes them and publishes the
// result to a Store. Refreshes never overlap.
type Refresher struct {
	source   TickerSource
	store    *Store
	log      *logger.Log
	quote    string
	pinned   string
	interval time.Duration

	mu  sync.Mutex
	now func() time.Time
}

func NewRefresher(cfg config.MarketConfig, source TickerSource, st *Store, log *logger.Log) *Refresher {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Refresher{
		source:   source,
		store:    st,
		log:      log,
		quote:    cfg.QuoteAsset,
		pinned:   cfg.PinnedSymbol,
		interval: cfg.RefreshInterval,
		now:      time.Now,
	}
}

// Refresh runs one fetch cycle. On failure the previous assets stay in the
// store and the returned snapshot carries the error.
func (r *Refresher) Refresh(ctx context.Context) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	log := r.log.WithComponent(component).WithFields(logger.Fields{"operation": "refresh"})
	start := r.now()

	raw, err := r.source.FetchTickers(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return r.store.Load(), err
		}
		log.WithError(err).Warn("ticker fetch failed, keeping previous assets")
		return r.store.fail(err, r.now()), err
	}

	assets, report, err := processor.NormalizeWithReport(raw, r.quote, r.pinned)
	if err != nil {
		log.WithError(err).Warn("ticker payload rejected, keeping previous assets")
		return r.store.fail(err, r.now()), err
	}

	for _, pe := range report.ParseErrors {
		metrics.AddFieldParseError(pe.Field)
		log.WithError(pe).Debug("field not available")
	}
	metrics.SetAssetsCurrent(len(assets))

	snap := r.store.replace(assets, r.now())

	logger.LogPerformanceEntry(log, component, "refresh", r.now().Sub(start), logger.Fields{
		"received":     report.Received,
		"kept":         report.Kept,
		"out_of_scope": report.OutOfScope,
		"duplicates":   report.Duplicates,
		"parse_errors": len(report.ParseErrors),
		"pinned":       report.Pinned,
	})
	return snap, nil
}

// Run refreshes once and then on every interval until ctx is done. A zero
// interval performs only the initial refresh.
func (r *Refresher) Run(ctx context.Context) {
	log := r.log.WithComponent(component)
	_, _ = r.Refresh(ctx)

	if r.interval <= 0 {
		log.Info("periodic refresh disabled")
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	log.WithField("interval", r.interval.String()).Info("periodic refresh started")
	for {
		select {
		case <-ctx.Done():
			log.Info("periodic refresh stopped")
			return
		case <-ticker.C:
			_, _ = r.Refresh(ctx)
		}
	}
}
