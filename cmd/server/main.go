package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/leasegen/backend/internal/application/leasegen"
	"github.com/leasegen/backend/internal/infrastructure/challenge"
	"github.com/leasegen/backend/internal/infrastructure/config"
	"github.com/leasegen/backend/internal/infrastructure/document"
	"github.com/leasegen/backend/internal/infrastructure/generation"
	"github.com/leasegen/backend/internal/infrastructure/logger"
	"github.com/leasegen/backend/internal/infrastructure/ratelimit"
	"github.com/leasegen/backend/internal/infrastructure/schema"
	"github.com/leasegen/backend/internal/infrastructure/telemetry"
	"github.com/leasegen/backend/internal/interfaces/http/handler"
	"github.com/leasegen/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting lease generation service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("backend", cfg.Generation.Backend),
		zap.String("document_format", cfg.Document.Format),
	)
	if cfg.IsProduction() && cfg.Log.Format != "json" {
		log.Warn("Console log format in production, json is recommended")
	}

	ctx := context.Background()

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log.Named("telemetry"))
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log.Named("telemetry"))
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	profiler, err := telemetry.NewProfiler(cfg.Telemetry, log.Named("telemetry"))
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}

	usage, err := telemetry.NewUsageTracker(meterProvider.Meter("leasegen"), log.Named("usage"),
		telemetry.WithDailyBudget(cfg.Telemetry.DailyBudgetUSD),
	)
	if err != nil {
		log.Fatal("Failed to create usage tracker", zap.Error(err))
	}

	// Abuse guard
	store, err := ratelimit.NewStoreFactory(cfg.RateLimit, cfg.Redis, ratelimit.WithLogger(log.Named("ratelimit"))).CreateStore()
	if err != nil {
		log.Fatal("Failed to create rate limit store", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Error closing rate limit store", zap.Error(err))
		}
	}()
	limiter := ratelimit.NewLimiter(store, cfg.RateLimit.Requests, cfg.RateLimit.Window)

	verifier, err := challenge.New(cfg.Captcha, log.Named("challenge"))
	if err != nil {
		log.Fatal("Failed to create captcha verifier", zap.Error(err))
	}

	// Validation, generation, rendering
	inputValidator, err := schema.NewInputValidator()
	if err != nil {
		log.Fatal("Failed to load input schema", zap.Error(err))
	}
	outputValidator, err := schema.NewOutputValidator()
	if err != nil {
		log.Fatal("Failed to load output schema", zap.Error(err))
	}

	generator, err := generation.New(ctx, cfg.Generation, nil, log)
	if err != nil {
		log.Fatal("Failed to create generation backend", zap.Error(err))
	}

	renderer, closeRenderer, err := document.New(cfg.Document, log)
	if err != nil {
		log.Fatal("Failed to create document renderer", zap.Error(err))
	}
	defer func() {
		if err := closeRenderer(); err != nil {
			log.Error("Error closing document renderer", zap.Error(err))
		}
	}()

	pipeline := leasegen.NewPipeline(leasegen.Dependencies{
		RateLimiter:     limiter,
		Verifier:        verifier,
		InputValidator:  inputValidator,
		Generator:       generator,
		OutputValidator: outputValidator,
		Usage:           usage,
		Renderer:        renderer,
		Logger:          log.Named("leasegen"),
	},
		leasegen.WithGenerationTimeout(cfg.Generation.Timeout),
		leasegen.WithBackend(generator.Backend(), generator.Model()),
	)

	// Set Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	routerCfg := router.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: tracerProvider.IsEnabled(),
		TrustedProxies: cfg.HTTP.TrustedProxies,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
	}
	if meterProvider.IsEnabled() {
		routerCfg.Meter = meterProvider.Meter("http.server")
	}
	engine, err := router.NewEngine(routerCfg, log,
		handler.NewLeaseHandler(pipeline,
			handler.WithProduction(cfg.IsProduction()),
			handler.WithLogger(log.Named("http")),
		),
		handler.NewHealthHandler(),
	)
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// In-flight generations may run up to the generation timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Generation.Timeout+10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
