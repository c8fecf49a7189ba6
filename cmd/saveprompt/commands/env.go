package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/benvon/saveprompt/internal/catalog"
	"github.com/benvon/saveprompt/internal/config"
	"github.com/benvon/saveprompt/internal/logger"
	"github.com/benvon/saveprompt/internal/middleware"
	"github.com/benvon/saveprompt/internal/telemetry"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

// env bundles what every command needs, built from config
type env struct {
	cfg     *config.Config
	log     *zap.Logger
	catalog *catalog.Catalog
	closers []func(context.Context) error
}

func loadEnv(ctx context.Context, debug bool) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	zapLogger, err := logger.New(cfg.LogFormat, cfg.DebugMode || debug)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	e := &env{cfg: cfg, log: zapLogger, catalog: catalog.Default()}
	e.closers = append(e.closers, func(context.Context) error {
		_ = logger.Sync(zapLogger) // stderr sync errors are not actionable
		return nil
	})

	if cfg.CatalogPath != "" {
		c, err := catalog.Load(cfg.CatalogPath)
		if err != nil {
			return nil, err
		}
		e.catalog = c
		zapLogger.Debug("Loaded catalog", zap.String("path", cfg.CatalogPath), zap.String("locale", c.Locale))
	}

	if cfg.OTELEnabled {
		tp, err := telemetry.InitTracer(ctx, telemetry.ServiceName, cfg.OTELEndpoint)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, func(ctx context.Context) error {
			return telemetry.Shutdown(ctx, tp)
		})
		zapLogger.Debug("Tracing enabled", zap.String("endpoint", cfg.OTELEndpoint))
	}

	return e, nil
}

// metricsRouter serves reg on /metrics, traced when OTEL is enabled
func (e *env) metricsRouter(reg *prometheus.Registry) *mux.Router {
	r := mux.NewRouter()
	// gorilla/mux runs middleware in registration order; tracing wraps logging.
	if e.cfg.OTELEnabled {
		r.Use(otelmux.Middleware(telemetry.ServiceName))
	}
	r.Use(middleware.ScrapeLogging(e.log))
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	return r
}

// serveMetrics exposes reg on addr until the env is closed
func (e *env) serveMetrics(addr string, reg *prometheus.Registry) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           e.metricsRouter(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.log.Warn("Metrics server stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()
	e.closers = append(e.closers, srv.Shutdown)
	e.log.Info("Serving metrics", zap.String("addr", addr))
}

func (e *env) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](ctx); err != nil {
			e.log.Warn("Shutdown step failed", zap.Error(err))
		}
	}
}
