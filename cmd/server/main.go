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

	billingapp "github.com/sellerpulse/backend/internal/application/billing"
	connectorapp "github.com/sellerpulse/backend/internal/application/connector"
	syncqueueapp "github.com/sellerpulse/backend/internal/application/syncqueue"
	webhookapp "github.com/sellerpulse/backend/internal/application/webhook"
	"github.com/sellerpulse/backend/internal/domain/shared"
	"github.com/sellerpulse/backend/internal/infrastructure/auth"
	"github.com/sellerpulse/backend/internal/infrastructure/cache"
	"github.com/sellerpulse/backend/internal/infrastructure/config"
	"github.com/sellerpulse/backend/internal/infrastructure/logger"
	"github.com/sellerpulse/backend/internal/infrastructure/persistence"
	"github.com/sellerpulse/backend/internal/infrastructure/platform"
	"github.com/sellerpulse/backend/internal/infrastructure/scheduler"
	"github.com/sellerpulse/backend/internal/infrastructure/vault"
	"github.com/sellerpulse/backend/internal/interfaces/http/handler"
	"github.com/sellerpulse/backend/internal/interfaces/http/middleware"
	"github.com/sellerpulse/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting SellerPulse backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// The vault key is validated during config load; a malformed key never
	// gets this far.
	vaultKey, err := cfg.Vault.KeyBytes()
	if err != nil {
		log.Fatal("Invalid vault key", zap.Error(err))
	}
	credentialVault, err := vault.New(vaultKey)
	if err != nil {
		log.Fatal("Failed to initialize credential vault", zap.Error(err))
	}

	// Database connection with zap-backed GORM logging
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	// Webhook idempotency store, Redis-backed when configured
	idempotencyStore, err := cache.NewIdempotencyStore(cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	idemCfg := shared.DefaultIdempotencyConfig()

	// Repositories
	accountRepo := persistence.NewGormAccountRepository(db.DB)
	syncJobRepo := persistence.NewGormSyncJobRepository(db.DB)
	billingProfileRepo := persistence.NewGormBillingProfileRepository(db.DB)

	// Platform API clients
	etsyClient := platform.NewEtsyClient(cfg.Etsy, cfg.EtsyRedirectURL())
	shopifyClient := platform.NewShopifyClient(cfg.Shopify)
	printifyClient := platform.NewPrintifyClient(cfg.Printify)

	// Application services
	queueGateway := syncqueueapp.NewGateway(syncJobRepo, accountRepo, log)
	connectionService := connectorapp.NewService(accountRepo, log)

	etsyConnector := connectorapp.NewEtsyConnector(etsyClient, accountRepo, credentialVault,
		queueGateway, cfg.App.BaseURL+"/webhooks/etsy", log)
	shopifyConnector := connectorapp.NewShopifyConnector(shopifyClient, accountRepo, credentialVault,
		queueGateway, cfg.ShopifyRedirectURL(), cfg.App.BaseURL+"/webhooks/shopify", log)
	printifyConnector := connectorapp.NewPrintifyConnector(printifyClient, accountRepo, credentialVault,
		queueGateway, cfg.App.BaseURL+"/webhooks/printify", log)

	etsyVerifier, err := webhookapp.NewEtsyVerifier(cfg.Etsy, accountRepo, queueGateway,
		idempotencyStore, idemCfg, log)
	if err != nil {
		log.Fatal("Invalid Etsy webhook secret", zap.Error(err))
	}
	shopifyVerifier := webhookapp.NewShopifyVerifier(cfg.Shopify, accountRepo, queueGateway,
		idempotencyStore, idemCfg, log)
	printifyVerifier := webhookapp.NewPrintifyVerifier(accountRepo, credentialVault, queueGateway,
		idempotencyStore, idemCfg, log)

	stripeWebhookService := billingapp.NewStripeWebhookService(cfg.Stripe, billingProfileRepo, log)

	jwtService := auth.NewJWTService(cfg.Session)

	// Background schedulers: token refresh keeps Etsy credentials alive,
	// periodic sync is the catch-up net for missed webhooks.
	if cfg.Scheduler.Enabled {
		tokenRefresh := scheduler.NewTokenRefreshScheduler(etsyConnector,
			cfg.Scheduler.TokenRefreshInterval, cfg.Scheduler.TokenRefreshWindow, log)
		if err := tokenRefresh.Start(context.Background()); err != nil {
			log.Fatal("Failed to start token refresh scheduler", zap.Error(err))
		}
		defer tokenRefresh.Stop()

		periodicSync := scheduler.NewPeriodicSyncScheduler(queueGateway,
			cfg.Scheduler.PeriodicSyncInterval, log)
		if err := periodicSync.Start(context.Background()); err != nil {
			log.Fatal("Failed to start periodic sync scheduler", zap.Error(err))
		}
		defer periodicSync.Stop()

		log.Info("Schedulers started",
			zap.Duration("token_refresh_interval", cfg.Scheduler.TokenRefreshInterval),
			zap.Duration("periodic_sync_interval", cfg.Scheduler.PeriodicSyncInterval),
		)
	}

	// HTTP handlers
	oauthHandler := handler.NewOAuthHandler(etsyConnector, shopifyConnector, printifyConnector,
		cfg.App, cfg.Session)
	connectionHandler := handler.NewConnectionHandler(connectionService)
	syncHandler := handler.NewSyncHandler(queueGateway)
	webhookHandler := handler.NewWebhookHandler(etsyVerifier, shopifyVerifier, printifyVerifier, cfg.HTTP)
	stripeHandler := handler.NewStripeWebhookHandler(stripeWebhookService, cfg.HTTP)
	systemHandler := handler.NewSystemHandler(db)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Secure(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.CORSWithConfig(corsCfg),
	)

	r := router.NewRouter(engine,
		router.WithAPIVersion("v1"),
		router.WithAuthMiddleware(middleware.JWTAuth(jwtService, log)),
	)
	r.RegisterPublic(systemHandler)
	r.RegisterPublic(webhookHandler)
	r.RegisterPublic(stripeHandler)
	r.RegisterPublic(router.RegistrarFunc(oauthHandler.RegisterCallbackRoutes))
	r.Register(oauthHandler)
	r.Register(connectionHandler)
	r.Register(syncHandler)
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
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Forced shutdown", zap.Error(err))
	}
	log.Info("Server stopped")
}
