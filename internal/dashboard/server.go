package dashboard

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"cryptotracker/config"
	"cryptotracker/internal/metrics"
	"cryptotracker/internal/store"
	"cryptotracker/internal/symbols"
	"cryptotracker/logger"
	"cryptotracker/models"
)

//go:embed templates/*.tmpl
var embeddedFS embed.FS

// Refresher triggers an immediate ticker refresh.
type Refresher interface {
	Refresh(ctx context.Context) (*store.Snapshot, error)
}

// ChartSource fetches daily closing prices for one symbol.
type ChartSource interface {
	FetchChart(ctx context.Context, symbol string) ([]models.ChartPoint, error)
}

// Pinger checks exchange reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies are the collaborators behind the HTTP API. Store and
// Refresher are required.
type Dependencies struct {
	Store     *store.Store
	Refresher Refresher
	Charts    ChartSource
	Exchange  Pinger
	Icons     *symbols.IconResolver
}

// Server hosts the asset API and the diagnostics endpoints.
type Server struct {
	cfg             config.HTTPConfig
	appName         string
	quoteAsset      string
	release         bool
	prometheus      bool
	deps            Dependencies
	log             *logger.Log
	metricStore     *metricStore
	logStore        *logStore
	metricHandler   metrics.MetricHandlerID
	resourceSampler *resourceSampler
	httpServer      *http.Server
}

// NewServer builds the HTTP server from the loaded configuration.
func NewServer(cfg *config.Config, deps Dependencies, log *logger.Log) (*Server, error) {
	if deps.Store == nil || deps.Refresher == nil {
		return nil, errors.New("dashboard: store and refresher are required")
	}
	if deps.Icons == nil {
		deps.Icons = symbols.NewIconResolver(cfg.Icons.URLTemplate, cfg.Icons.FallbackURL, cfg.Icons.Aliases)
	}
	if log == nil {
		log = logger.GetLogger()
	}

	httpCfg := cfg.HTTP
	httpCfg.Address = normalizeAddress(httpCfg.Address)

	metricStore := newMetricStore(httpCfg.MetricsHistory)
	logStore := newLogStore(httpCfg.LogHistory)
	log.AddHook(logStore)

	return &Server{
		cfg:             httpCfg,
		appName:         cfg.App.Name,
		quoteAsset:      cfg.Market.QuoteAsset,
		release:         config.IsProductionLike(config.AppEnvironment()),
		prometheus:      cfg.Metrics.Prometheus,
		deps:            deps,
		log:             log,
		metricStore:     metricStore,
		logStore:        logStore,
		metricHandler:   metrics.RegisterMetricHandler(metricStore.handle),
		resourceSampler: newResourceSampler(httpCfg.MetricsHistory, 5*time.Second, log),
	}, nil
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	defer s.cleanup()

	router, err := s.buildRouter()
	if err != nil {
		return err
	}

	s.resourceSampler.start(ctx)

	s.httpServer = &http.Server{
		Addr:         s.cfg.Address,
		Handler:      router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	s.log.WithComponent("http").WithField("address", s.cfg.Address).Info("http server listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if err == nil {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	}
}

func (s *Server) cleanup() {
	metrics.UnregisterMetricHandler(s.metricHandler)
	s.logStore.close()
	s.resourceSampler.stop()
}

// Address reports the normalised listen address.
func (s *Server) Address() string {
	return s.cfg.Address
}

func (s *Server) buildRouter() (*gin.Engine, error) {
	if s.release {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestID(), requestLogger(s.log))
	if err := router.SetTrustedProxies(nil); err != nil {
		return nil, err
	}

	tmpl := template.Must(template.New("dashboard").ParseFS(embeddedFS, "templates/index.tmpl"))
	router.SetHTMLTemplate(tmpl)

	router.GET("/", s.index)
	router.GET("/healthz", s.health)
	if s.prometheus {
		router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	api := router.Group("/api")
	api.GET("/assets", s.listAssets)
	api.GET("/assets/:symbol", s.getAsset)
	api.GET("/assets/:symbol/chart", s.getChart)
	api.POST("/refresh", s.refresh)

	diag := api.Group("/diagnostics")
	diag.GET("/metrics", s.metricHistory)
	diag.GET("/logs", s.logHistory)
	diag.GET("/resources", s.resourceHistory)

	return router, nil
}

func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)

	if addr == "" {
		return "0.0.0.0:8080"
	}

	if strings.Contains(addr, "://") {
		if parsed, err := url.Parse(addr); err == nil {
			if host := parsed.Host; host != "" {
				addr = host
			} else if parsed.Opaque != "" {
				addr = parsed.Opaque
			}
		}
	}

	if strings.HasPrefix(addr, ":") {
		if len(addr) > 1 && addr[1] >= '0' && addr[1] <= '9' {
			return "0.0.0.0" + addr
		}
	}

	host, port, err := net.SplitHostPort(addr)
	if err == nil {
		if host == "" || host == "*" {
			host = "0.0.0.0"
		}
		if port == "" {
			port = "8080"
		}
		return net.JoinHostPort(host, port)
	}

	if ip := net.ParseIP(addr); ip != nil {
		return net.JoinHostPort(addr, "8080")
	}

	if !strings.Contains(addr, ":") {
		return net.JoinHostPort(addr, "8080")
	}

	return addr
}
