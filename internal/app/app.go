package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/praxis/server/cmd/server/docs" // swagger docs
	redisadapter "github.com/praxis/server/internal/adapter/outbound/redis"
	"github.com/praxis/server/internal/infra/httpclient"
	"github.com/praxis/server/internal/module/auth"
	"github.com/praxis/server/internal/module/checkout"
	"github.com/praxis/server/internal/module/checkout/provider"
	"github.com/praxis/server/internal/port/outbound"
	sharedcache "github.com/praxis/server/internal/shared/cache"
	"github.com/praxis/server/internal/shared/config"
	"github.com/praxis/server/internal/shared/database"
	"github.com/praxis/server/internal/shared/logger"
	"github.com/praxis/server/internal/utils/metrics"
	"github.com/praxis/server/internal/utils/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const metricsNamespace = "praxis"

// App represents the application.
type App struct {
	config    *config.Config
	db        *gorm.DB
	redis     redis.UniversalClient
	router    *gin.Engine
	logger    *logger.Logger
	zapLogger *zap.Logger

	registry    *prometheus.Registry
	metrics     *metrics.Metrics
	rateLimiter outbound.RateLimiterPort

	// Modules
	checkoutHandler *checkout.Handler
	verifier        *auth.Verifier

	// Resources opened here and closed on Stop.
	ownsDB    bool
	ownsRedis bool
}

// Option configures an App.
type Option func(*App)

// WithDB uses an existing database handle instead of opening one.
func WithDB(db *gorm.DB) Option {
	return func(a *App) { a.db = db }
}

// WithRedis uses an existing Redis client instead of dialing one.
func WithRedis(client redis.UniversalClient) Option {
	return func(a *App) { a.redis = client }
}

// New creates a new application instance.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	// Initialize logger
	log := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	// Initialize zap logger for module services
	zapLog, err := logger.NewZapLogger(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("init zap logger: %w", err)
	}

	app := &App{
		config:    cfg,
		logger:    log,
		zapLogger: zapLog,
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(app)
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	app.initRateLimiter()

	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.metrics = metrics.New(metricsNamespace, app.registry)

	// Initialize router
	app.router = app.setupRouter()

	// Initialize modules
	app.initCheckoutModule()
	app.registerRoutes()

	return app, nil
}

func (a *App) initDatabase() error {
	if a.db != nil {
		return nil
	}

	if a.config.Database.AutoMigrate {
		if err := database.Migrate(a.config.Database.URL()); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		a.logger.Info("database migrations applied")
	}

	db, err := database.New(&a.config.Database)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	a.db = db
	a.ownsDB = true
	return nil
}

// initRateLimiter picks the Redis limiter when Redis is reachable, otherwise an in-process one.
func (a *App) initRateLimiter() {
	if !a.config.RateLimit.Enabled {
		return
	}

	if a.redis == nil && a.config.Redis.Address != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		client, err := sharedcache.NewRedisClient(ctx, &a.config.Redis)
		if err != nil {
			// Redis is optional
			a.logger.Warn("redis unavailable, using in-process rate limiter", logger.Err(err))
		} else {
			a.redis = client
			a.ownsRedis = true
		}
	}

	if a.redis != nil {
		a.rateLimiter = redisadapter.NewRateLimiter(a.redis)
		return
	}
	a.rateLimiter = middleware.NewLocalRateLimiter(10 * a.config.RateLimit.Window)
}

// setupRouter creates and configures the Gin router.
func (a *App) setupRouter() *gin.Engine {
	if a.config.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true

	// Apply global middleware
	r.Use(middleware.Recovery(a.logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(a.logger))
	r.Use(middleware.Metrics(a.metrics))
	r.Use(middleware.CORS(a.corsConfig()))

	r.NoRoute(middleware.NotFound())
	r.NoMethod(middleware.MethodNotAllowed())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	// Swagger documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	return r
}

func (a *App) corsConfig() middleware.CORSConfig {
	cfg := middleware.DefaultCORSConfig()
	if len(a.config.CORS.AllowOrigins) > 0 {
		cfg.AllowOrigins = a.config.CORS.AllowOrigins
	}
	return cfg
}

func (a *App) initCheckoutModule() {
	a.verifier = auth.NewVerifier(auth.Config{
		Secret:   a.config.Auth.JWTSecret,
		Issuer:   a.config.Auth.Issuer,
		Audience: a.config.Auth.Audience,
	})

	clientCfg := httpclient.DefaultConfig()
	if a.config.Provider.Timeout > 0 {
		clientCfg.ResponseTimeout = a.config.Provider.Timeout
	}

	abacate := provider.NewAbacatePay(provider.AbacatePayConfig{
		BaseURL:          a.config.Provider.BaseURL,
		APIToken:         a.config.Provider.APIToken,
		FailureThreshold: a.config.Provider.BreakerFailureThreshold,
		OpenTimeout:      a.config.Provider.BreakerTimeout,
		MaxHalfOpen:      a.config.Provider.BreakerMaxHalfOpen,
	}, httpclient.New(clientCfg), a.metrics, a.zapLogger)

	service := checkout.NewService(
		checkout.NewRepository(a.db),
		abacate,
		checkout.ServiceConfig{
			PlanName:        a.config.Checkout.PlanName,
			PlanAmount:      a.config.Checkout.PlanAmount,
			PlanDescription: a.config.Checkout.PlanDescription,
			SuccessMessage:  a.config.Checkout.SuccessMessage,
			ReturnURL:       a.config.Provider.ReturnURL,
			CompletionURL:   a.config.Provider.CompletionURL,
		},
		a.metrics,
		a.zapLogger.Named("checkout"),
	)

	a.checkoutHandler = checkout.NewHandler(service, checkout.NewValidator(a.config.Checkout.RequireTaxID))
}

// registerRoutes registers all module routes.
func (a *App) registerRoutes() {
	api := a.router.Group(a.config.Server.APIPrefix)

	guard := make([]gin.HandlerFunc, 0, 2)
	if a.rateLimiter != nil {
		guard = append(guard, middleware.RateLimit(a.rateLimiter, middleware.RateLimitConfig{
			Limit:  a.config.RateLimit.Limit,
			Window: a.config.RateLimit.Window,
		}, a.metrics))
	}
	guard = append(guard, middleware.RequireAuth(a.verifier))

	a.checkoutHandler.RegisterRoutes(api, middleware.Preflight(a.corsConfig()), guard...)
}

// Router returns the HTTP router.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Stop releases resources opened by New.
func (a *App) Stop() {
	// Sync zap logger
	if a.zapLogger != nil {
		_ = a.zapLogger.Sync()
	}

	// Close Redis connection
	if a.redis != nil && a.ownsRedis {
		_ = a.redis.Close()
	}

	// Close database connection
	if a.db != nil && a.ownsDB {
		_ = database.Close(a.db)
	}
}
