package router

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/leasegen/backend/internal/infrastructure/logger"
	"github.com/leasegen/backend/internal/interfaces/http/handler"
	"github.com/leasegen/backend/internal/interfaces/http/middleware"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	prefix     string
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithPrefix sets the API path prefix
func WithPrefix(prefix string) RouterOption {
	return func(r *Router) {
		r.prefix = prefix
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine: engine,
		prefix: "/api",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a RouteRegistrar to be registered later
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup registers all routes with the engine
func (r *Router) Setup() {
	api := r.engine.Group(r.prefix)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// LeaseRoutes registers the lease generation endpoint
type LeaseRoutes struct {
	Handler     *handler.LeaseHandler
	MaxBodySize int64
}

// RegisterRoutes implements RouteRegistrar
func (lr LeaseRoutes) RegisterRoutes(rg *gin.RouterGroup) {
	post := []gin.HandlerFunc{lr.Handler.GenerateLease}
	if lr.MaxBodySize > 0 {
		post = append([]gin.HandlerFunc{middleware.BodyLimit(lr.MaxBodySize)}, post...)
	}
	rg.POST("/generate-lease", post...)
	rg.OPTIONS("/generate-lease", lr.Handler.Preflight)
}

// Config controls the middleware stack of the engine
type Config struct {
	ServiceName    string
	TracingEnabled bool
	TrustedProxies []string
	MaxBodySize    int64
	// Meter enables HTTP metrics when set.
	Meter metric.Meter
}

// NewEngine builds the gin engine with the full middleware stack and every
// route of the API.
//
// Middleware order:
//  1. RequestID
//  2. Recovery
//  3. Tracing, then span enrichment
//  4. Access log
//  5. HTTP metrics
//  6. Security headers
//  7. CORS
func NewEngine(cfg Config, log *zap.Logger, lease *handler.LeaseHandler, health *handler.HealthHandler) (*gin.Engine, error) {
	engine := gin.New()

	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.ServiceName,
		Enabled:     cfg.TracingEnabled,
	}))
	engine.Use(middleware.SpanEnricher())
	engine.Use(logger.GinMiddleware(log))
	if cfg.Meter != nil {
		metrics, err := middleware.HTTPMetrics(cfg.Meter)
		if err != nil {
			return nil, err
		}
		engine.Use(metrics)
	}
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORS())

	engine.GET("/health", health.Check)

	NewRouter(engine).
		Register(LeaseRoutes{Handler: lease, MaxBodySize: cfg.MaxBodySize}).
		Setup()

	return engine, nil
}
