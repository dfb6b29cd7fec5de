package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"cryptotracker/config"
	"cryptotracker/internal/dashboard"
	"cryptotracker/internal/metrics"
	"cryptotracker/internal/store"
	"cryptotracker/internal/symbols"
	"cryptotracker/logger"
	"cryptotracker/reader/binance"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", config.DefaultPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service":     cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": config.AppEnvironment(),
		"quote_asset": cfg.Market.QuoteAsset,
		"pinned":      cfg.Market.PinnedSymbol,
	}).Info("starting cryptotracker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Metrics.Prometheus {
		metrics.Init()
	}

	var sinks []logger.ReportSink
	if cfg.Metrics.CloudWatch.Enabled {
		metrics.InitCloudWatch(ctx, cfg.Metrics.CloudWatch.Region, cfg.Metrics.CloudWatch.Namespace)
		sinks = append(sinks, metrics.PublishReport)
	}

	if strings.ToLower(cfg.Logging.Level) == "report" {
		logger.StartReport(ctx, log, cfg.Logging.ReportInterval, sinks...)
	}

	reader := binance.NewTickerReader(cfg)
	st := store.New()
	refresher := store.NewRefresher(cfg.Market, reader, st, log)

	server, err := dashboard.NewServer(cfg, dashboard.Dependencies{
		Store:     st,
		Refresher: refresher,
		Charts:    reader,
		Exchange:  reader,
		Icons:     symbols.NewIconResolver(cfg.Icons.URLTemplate, cfg.Icons.FallbackURL, cfg.Icons.Aliases),
	}, log)
	if err != nil {
		log.WithError(err).Error("failed to create http server")
		os.Exit(1)
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		refresher.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Run(ctx); err != nil {
			log.WithError(err).Error("http server stopped")
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")
	case <-ctx.Done():
	}

	log.Info("starting graceful shutdown")
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("graceful shutdown completed")
	case <-time.After(30 * time.Second):
		log.Warn("graceful shutdown timeout exceeded")
	}

	log.Info("cryptotracker stopped")
}
