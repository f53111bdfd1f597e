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

	catalogapp "github.com/Ashtonex/maasim/internal/application/catalog"
	checkoutapp "github.com/Ashtonex/maasim/internal/application/checkout"
	libraryapp "github.com/Ashtonex/maasim/internal/application/library"
	"github.com/Ashtonex/maasim/internal/infrastructure/auth"
	"github.com/Ashtonex/maasim/internal/infrastructure/cache"
	"github.com/Ashtonex/maasim/internal/infrastructure/config"
	"github.com/Ashtonex/maasim/internal/infrastructure/event"
	"github.com/Ashtonex/maasim/internal/infrastructure/logger"
	"github.com/Ashtonex/maasim/internal/infrastructure/notification"
	"github.com/Ashtonex/maasim/internal/infrastructure/payment"
	"github.com/Ashtonex/maasim/internal/infrastructure/persistence"
	"github.com/Ashtonex/maasim/internal/infrastructure/storage"
	"github.com/Ashtonex/maasim/internal/infrastructure/telemetry"
	"github.com/Ashtonex/maasim/internal/interfaces/http/handler"
	"github.com/Ashtonex/maasim/internal/interfaces/http/middleware"
	"github.com/Ashtonex/maasim/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Options{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Service: cfg.App.Name,
	})
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env))

	// Tracing
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			log.Warn("Tracer provider shutdown failed", zap.Error(err))
		}
	}()

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(200*time.Millisecond))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.NewDBTracingPlugin(telemetry.DefaultDBTracingConfig(), log)
		if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
			log.Warn("Failed to register database tracing", zap.Error(err))
		}
	}

	// Repositories
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	bookRepo := persistence.NewGormBookRepository(db.DB)
	entitlementRepo := persistence.NewGormEntitlementRepository(db.DB)
	accountRepo := persistence.NewGormAccountRepository(db.DB)

	// Webhook idempotency store, Redis when reachable
	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithFactoryLogger(log)).CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() { _ = idempotencyStore.Close() }()

	// Object storage
	var objectStorage catalogapp.ObjectStorageService
	if cfg.Storage.Endpoint != "" {
		s3Storage, err := storage.NewS3ObjectStorage(&cfg.Storage,
			storage.WithLogger(log),
			storage.WithPresignExpiration(cfg.Storage.PresignExpiration))
		if err != nil {
			log.Fatal("Failed to initialize object storage", zap.Error(err))
		}
		objectStorage = s3Storage
	} else {
		log.Warn("No object storage endpoint configured, using stub storage")
		objectStorage = storage.NewStubObjectStorage()
	}

	// Payment gateway
	gateway, err := payment.NewPaynowAdapter(&payment.PaynowConfig{
		IntegrationID:  cfg.Paynow.IntegrationID,
		IntegrationKey: cfg.Paynow.IntegrationKey,
		InitiateURL:    cfg.Paynow.InitiateURL,
		RequestTimeout: cfg.Paynow.RequestTimeout,
	})
	if err != nil {
		log.Fatal("Failed to initialize payment gateway", zap.Error(err))
	}

	// Guest delivery notifier
	var notifier checkoutapp.GuestFulfillmentNotifier
	if cfg.Notification.Enabled {
		notifier, err = notification.NewHTTPGuestNotifier(&cfg.Notification, log)
		if err != nil {
			log.Fatal("Failed to initialize guest notifier", zap.Error(err))
		}
	} else {
		notifier = notification.NewNopGuestNotifier(log)
	}

	eventBus := event.NewInMemoryEventBus(log)

	// Order lifecycle transitions land in the audit log
	eventBus.Subscribe(checkoutapp.NewOrderAuditHandler(log))

	// Auth
	jwtService := auth.NewJWTService(cfg.JWT)
	var tokenBlacklist auth.TokenBlacklist
	if redisBlacklist, err := auth.NewRedisTokenBlacklist(cfg.Redis); err != nil {
		log.Warn("Redis token blacklist unavailable, falling back to in-memory", zap.Error(err))
		tokenBlacklist = auth.NewInMemoryTokenBlacklist()
	} else {
		tokenBlacklist = redisBlacklist
	}

	// Application services
	checkoutService := checkoutapp.NewCheckoutService(
		bookRepo,
		orderRepo,
		gateway,
		checkoutapp.URLConfig{
			ReturnURL: cfg.Checkout.ReturnURL,
			ResultURL: cfg.Checkout.ResultURL,
		},
		eventBus,
		log,
	)
	fulfillmentService := checkoutapp.NewFulfillmentService(checkoutapp.FulfillmentServiceConfig{
		OrderRepo:       orderRepo,
		EntitlementRepo: entitlementRepo,
		AccountRepo:     accountRepo,
		Verifier:        checkoutapp.NewPaymentVerifier(gateway, log),
		Notifier:        notifier,
		EventPublisher:  eventBus,
		Logger:          log,
	})
	bookService := catalogapp.NewBookService(bookRepo, objectStorage, log)
	libraryService := libraryapp.NewLibraryService(entitlementRepo, bookRepo, objectStorage, log)

	// Handlers
	systemHandler := handler.NewSystemHandler()
	bookHandler := handler.NewBookHandler(bookService)
	checkoutHandler := handler.NewCheckoutHandler(checkoutService, fulfillmentService)
	callbackHandler := handler.NewPaynowCallbackHandler(fulfillmentService, idempotencyStore, log)
	libraryHandler := handler.NewLibraryHandler(libraryService)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	if cfg.Telemetry.Enabled {
		engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     true,
		}))
		engine.Use(middleware.SpanErrorMarker())
	}

	engine.GET("/health", healthHandler(db))

	// Paynow posts its callback here; the gateway carries no bearer token,
	// so the route lives outside the authenticated router.
	webhookLimit := cfg.HTTP.MaxWebhookBodySize
	if webhookLimit <= 0 {
		webhookLimit = middleware.MaxCallbackBodyBytes
	}
	callbackGroup := engine.Group("/api/v1/payments/paynow")
	callbackGroup.Use(middleware.BodyLimit(webhookLimit))
	callbackGroup.POST("/callback", callbackHandler.HandleCallback)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	authConfig := middleware.JWTMiddlewareConfig{
		JWTService:     jwtService,
		TokenBlacklist: tokenBlacklist,
		Logger:         log,
	}

	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/ping", systemHandler.Ping)
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)

	bookRoutes := router.NewDomainGroup("books", "/books")
	bookRoutes.GET("", bookHandler.List)
	bookRoutes.GET("/:id", bookHandler.GetByID)

	adminRoutes := router.NewDomainGroup("admin", "/admin")
	adminRoutes.Use(
		middleware.RequireAuthWithConfig(authConfig),
		middleware.RequireAdmin(),
	)
	adminBooks := adminRoutes.Group("admin-books", "/books")
	adminBooks.GET("", bookHandler.AdminList)
	adminBooks.GET("/:id", bookHandler.AdminGetByID)
	adminBooks.POST("", bookHandler.Create)
	adminBooks.PUT("/:id", bookHandler.Update)
	adminBooks.POST("/:id/publish", bookHandler.Publish)
	adminBooks.POST("/:id/unpublish", bookHandler.Unpublish)
	adminBooks.DELETE("/:id", bookHandler.Delete)

	// Guest checkout works without a token; a valid token binds the order
	// to the buyer's account.
	checkoutRoutes := router.NewDomainGroup("checkout", "/checkout")
	checkoutRoutes.Use(middleware.OptionalAuthWithConfig(authConfig))
	checkoutRoutes.POST("", checkoutHandler.Start)
	checkoutRoutes.GET("/confirm", checkoutHandler.Confirm)

	orderRoutes := router.NewDomainGroup("orders", "/orders")
	orderRoutes.Use(middleware.OptionalAuthWithConfig(authConfig))
	orderRoutes.GET("/:id", checkoutHandler.GetOrder)

	libraryRoutes := router.NewDomainGroup("library", "/library")
	libraryRoutes.Use(middleware.RequireAuthWithConfig(authConfig))
	libraryRoutes.GET("", libraryHandler.List)
	libraryRoutes.GET("/:book_id/download", libraryHandler.DownloadLink)

	r.Register(systemRoutes).
		Register(bookRoutes).
		Register(adminRoutes).
		Register(checkoutRoutes).
		Register(orderRoutes).
		Register(libraryRoutes)
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler reports liveness plus database reachability
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			logger.GetGinLogger(c).Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
