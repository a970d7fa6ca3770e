package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pcforge/pcforge-backend/config"
	"github.com/pcforge/pcforge-backend/internal/app/controller"
	"github.com/pcforge/pcforge-backend/internal/app/repository"
	"github.com/pcforge/pcforge-backend/internal/app/service"
	"github.com/pcforge/pcforge-backend/internal/cartstream"
	"github.com/pcforge/pcforge-backend/internal/db"
	"github.com/pcforge/pcforge-backend/internal/middleware"
	"github.com/pcforge/pcforge-backend/internal/router"
	"github.com/pcforge/pcforge-backend/internal/scheduler"
	"github.com/pcforge/pcforge-backend/internal/storage"
	"github.com/pcforge/pcforge-backend/internal/websocket"
	"github.com/pcforge/pcforge-backend/pkg/catalogsync"
	"github.com/pcforge/pcforge-backend/pkg/indicador"
	"github.com/pcforge/pcforge-backend/pkg/logger"
	"github.com/pcforge/pcforge-backend/pkg/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      "console", // Use "json" for production
		EnableColor: true,
	})

	logger.Info("Starting PCFORGE Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	// Run migrations
	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Seed database (optional)
	if err := db.Seed(); err != nil {
		logger.Warn("Failed to seed database", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Redis backs token revocation and the exchange rate cache. The
	// server still works without it, with those features degraded.
	if err := redis.Init(&cfg.Redis); err != nil {
		logger.Warn("Redis unavailable, token revocation and rate caching degraded", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		defer func() {
			if err := redis.Close(); err != nil {
				logger.Error("Failed to close Redis connection", err)
			}
		}()
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db.GetDB())
	productRepo := repository.NewProductRepository(db.GetDB())
	cartRepo := repository.NewCartRepository(db.GetDB())

	// Live cart plumbing
	cartBroker := cartstream.NewBroker()
	hub := websocket.NewHub()
	go hub.Run()

	// Central catalog sync is optional; without a base URL products stay
	// local_only.
	var catalogClient service.CatalogPusher
	if cfg.CatalogSync.BaseURL != "" {
		client, err := catalogsync.NewClient(catalogsync.Config{
			BaseURL: cfg.CatalogSync.BaseURL,
			APIKey:  cfg.CatalogSync.APIKey,
			Timeout: cfg.CatalogSync.Timeout,
		})
		if err != nil {
			logger.Fatal("Invalid catalog sync configuration", err)
		}
		catalogClient = client
	} else {
		logger.Info("Catalog sync disabled, products will stay local_only")
	}

	// Initialize services
	authService := service.NewAuthService(
		userRepo,
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	productService := service.NewProductService(productRepo, catalogClient)
	cartService := service.NewCartService(cartRepo, productRepo, cartBroker)
	checkoutService := service.NewCheckoutService(cartRepo, productRepo, cartBroker)
	rateService := service.NewRateService(
		indicador.NewClient(cfg.Indicator.BaseURL),
		service.RedisRateCache{},
		cfg.Indicator.CacheTTL,
	)

	// Refresh the exchange rate on a schedule
	rateScheduler := scheduler.NewRateScheduler(rateService, cfg.Indicator.CronSchedule)
	if err := rateScheduler.Start(); err != nil {
		logger.Fatal("Failed to start rate scheduler", err)
	}
	defer rateScheduler.Stop()

	// S3 storage for product image uploads
	s3Storage := storage.NewS3Storage(
		cfg.S3.Region,
		cfg.S3.Bucket,
		cfg.S3.AccessKeyID,
		cfg.S3.SecretAccessKey,
		cfg.S3.BaseURL,
	)

	// Initialize controllers
	authController := controller.NewAuthController(authService, cfg.JWT.AccessTokenExpiry)
	productController := controller.NewProductController(productService)
	cartController := controller.NewCartController(cartService, hub)
	checkoutController := controller.NewCheckoutController(checkoutService)
	rateController := controller.NewRateController(rateService)
	uploadController := controller.NewUploadController(s3Storage)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	// Setup router
	r := router.NewRouter(
		authController,
		productController,
		cartController,
		checkoutController,
		rateController,
		uploadController,
		authMiddleware,
		cfg,
	)
	engine := r.Setup()

	// Start server in a goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server started successfully", map[string]interface{}{
			"address": addr,
			"pid":     os.Getpid(),
		})
		if err := engine.Run(addr); err != nil {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	logger.Info("Server stopped successfully")
}
