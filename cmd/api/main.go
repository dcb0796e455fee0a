package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/tkp-service/internal/config"
	"github.com/noah-isme/tkp-service/internal/extract"
	"github.com/noah-isme/tkp-service/internal/health"
	"github.com/noah-isme/tkp-service/internal/obs"
	"github.com/noah-isme/tkp-service/internal/proposal"
	"github.com/noah-isme/tkp-service/internal/ratelimit"
	"github.com/noah-isme/tkp-service/internal/render"
	"github.com/noah-isme/tkp-service/internal/resilience"
	"github.com/noah-isme/tkp-service/internal/security"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg := config.MustLoad()

	logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	if cfg.Obs.EnablePrometheus {
		obs.MustRegisterDomainMetrics(cfg.Obs.MetricsNamespace, nil)
		resilience.MustRegisterMetrics(cfg.Obs.MetricsNamespace, nil)
	}

	if cfg.Obs.EnableTracing {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:    "tkp-service",
			ServiceVersion: version,
			Endpoint:       cfg.Obs.OTLPEndpoint,
			SamplingRatio:  cfg.Obs.SamplingRatio,
			Environment:    cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			cfg.Obs.EnableTracing = false
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	probes := []health.Probe{
		health.FileProbe("schema", cfg.TKP.SchemaPath),
		health.FileProbe("template", filepath.Join(cfg.TKP.TemplatesPath, cfg.TKP.TemplateName)),
	}

	var limiter ratelimit.Limiter = ratelimit.NewMemory(cfg.RateLimit.Limit, cfg.RateLimit.Window)
	if cfg.RedisURL != "" {
		redisClient, err := newRedis(cfg, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect redis")
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		}()
		limiter = ratelimit.Redis{
			Client: redisClient,
			Prefix: "tkp:ratelimit:collect:",
			Window: cfg.RateLimit.Window,
			Max:    cfg.RateLimit.Limit,
		}
		probes = append(probes, health.RedisProbe(redisClient))
	}

	svc := &proposal.Service{
		Extractor: extract.New(context.Background(), cfg.Extraction, extract.SchemaLoader{Path: cfg.TKP.SchemaPath}, logger),
		Renderer:  render.New(cfg.TKP.TemplatesPath, cfg.TKP.TemplateName),
		Logger:    logger,
	}
	collectLimit := ratelimit.Handler{
		Limiter: limiter,
		OnError: func(err error) { logger.Warn().Err(err).Msg("rate limiter unavailable") },
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Obs.EnableTracing {
		r.Use(obs.Tracing)
	}
	if cfg.Obs.EnablePrometheus {
		buckets := obs.ParseBucketsCSV(cfg.Obs.MetricsBuckets)
		r.Use(obs.HTTPObs{Metrics: obs.NewHTTPMetrics(cfg.Obs.MetricsNamespace, buckets, nil)}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		MaxAge:         300,
	}))
	r.Use(security.Headers{EnableHSTS: cfg.AppEnv == "production"}.Middleware)
	r.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)

	if cfg.Obs.EnablePrometheus {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.Handler{Probes: probes}
	r.Get("/health", healthHandler.Health)
	r.Get("/healthz", healthHandler.Health)
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	proposal.Handler{Svc: svc}.Routes(r, collectLimit.Middleware)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Str("extraction", svc.Extractor.Name()).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
	logger.Info().Msg("server stopped")
}

func newRedis(cfg *config.Config, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if cfg.Obs.EnablePrometheus {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}
