package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/crm-api/internal/middleware"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// StreamHandler serves long-lived responses and is mounted outside the
// timeout and rate limiting applied to the REST routes.
type StreamHandler interface {
	RegisterRoutes(gin.IRouter)
}

type InternalHandler interface {
	RegisterInternalRoutes(*gin.RouterGroup)
}

type HTTPHandler interface {
	RegisterRoutes(gin.IRouter)
}

type Router struct {
	engine         *gin.Engine
	auth           *middleware.AuthMiddleware
	authH          Handler
	notificationH  Handler
	internalH      InternalHandler
	streamH        StreamHandler
	health         HTTPHandler
	metrics        MetricsHandler
	config         RouterConfig
	loginLimiter   *middleware.RateLimiter
	requestLimiter *middleware.RateLimiter
}

// MetricsHandler records request metrics and serves the scrape endpoint.
type MetricsHandler interface {
	Middleware() gin.HandlerFunc
	Handler() gin.HandlerFunc
}

type RouterConfig struct {
	RateLimitEnabled bool
	RateLimit        rate.Limit
	RateBurst        int
	RequestTimeout   time.Duration
	MaxBodySize      int64
	CORSConfig       middleware.CORSConfig
	Security         middleware.SecurityConfig
	MetricsPath      string
}

type Handlers struct {
	Auth         Handler
	Notification Handler
	Internal     InternalHandler
	Stream       StreamHandler
	Health       HTTPHandler
	// Metrics may be nil when Prometheus is disabled.
	Metrics MetricsHandler
}

func NewRouter(auth *middleware.AuthMiddleware, handlers Handlers, config RouterConfig) *Router {
	engine := gin.New()
	// API paths are normalised by middleware.TrailingSlash before routing;
	// redirects would break EventSource clients.
	engine.RedirectTrailingSlash = false

	if config.MetricsPath == "" {
		config.MetricsPath = "/metrics"
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = middleware.DefaultTimeoutConfig().Duration
	}
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = middleware.DefaultSizeLimitConfig().MaxBodySize
	}

	r := &Router{
		engine:        engine,
		auth:          auth,
		authH:         handlers.Auth,
		notificationH: handlers.Notification,
		internalH:     handlers.Internal,
		streamH:       handlers.Stream,
		health:        handlers.Health,
		metrics:       handlers.Metrics,
		config:        config,
	}

	if config.RateLimitEnabled {
		r.requestLimiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		// login gets a tighter bucket against credential stuffing
		r.loginLimiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit / 10,
			Burst: 5,
		})
	}

	// Add core middlewares
	engine.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Recovery(),
		middleware.CORS(config.CORSConfig),
		middleware.SecurityHeaders(config.Security),
	)
	if r.metrics != nil {
		engine.Use(r.metrics.Middleware())
	}

	return r
}

func (r *Router) Setup() {
	if r.health != nil {
		r.health.RegisterRoutes(r.engine)
	}
	if r.metrics != nil {
		r.engine.GET(r.config.MetricsPath, r.metrics.Handler())
	}

	api := r.engine.Group("/api")

	// Public routes
	public := api.Group("")
	public.Use(middleware.SizeLimit(middleware.SizeLimitConfig{MaxBodySize: r.config.MaxBodySize}))
	if r.loginLimiter != nil {
		public.Use(r.loginLimiter.RateLimit())
	}
	public.Use(middleware.Timeout(middleware.TimeoutConfig{Duration: r.config.RequestTimeout}))
	r.authH.RegisterRoutes(public)

	// The stream authenticates itself so it can accept the token query parameter.
	r.streamH.RegisterRoutes(api)

	// Protected routes
	protected := api.Group("")
	protected.Use(
		r.auth.Authenticate(),
		middleware.SizeLimit(middleware.SizeLimitConfig{MaxBodySize: r.config.MaxBodySize}),
	)
	if r.requestLimiter != nil {
		protected.Use(r.requestLimiter.RateLimit())
	}
	protected.Use(middleware.Timeout(middleware.TimeoutConfig{Duration: r.config.RequestTimeout}))
	r.notificationH.RegisterRoutes(protected)
	if r.internalH != nil {
		r.internalH.RegisterInternalRoutes(protected)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
