package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/oakmart/storefront-backend/config"
	"github.com/oakmart/storefront-backend/internal/app/controller"
	"github.com/oakmart/storefront-backend/internal/app/repository"
	"github.com/oakmart/storefront-backend/internal/app/service"
	"github.com/oakmart/storefront-backend/internal/db"
	"github.com/oakmart/storefront-backend/internal/middleware"
	"github.com/oakmart/storefront-backend/internal/router"
	"github.com/oakmart/storefront-backend/internal/scheduler"
	"github.com/oakmart/storefront-backend/internal/storage"
	ws "github.com/oakmart/storefront-backend/internal/websocket"
	"github.com/oakmart/storefront-backend/pkg/logger"
	"github.com/oakmart/storefront-backend/pkg/mailer"
	"github.com/oakmart/storefront-backend/pkg/redis"
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

	logger.Info("Starting Storefront Backend Server", map[string]interface{}{
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

	// Redis backs the popular product cache. The cache degrades to the
	// database when Redis is down, so startup continues on failure.
	if err := redis.Init(&cfg.Redis); err != nil {
		logger.Warn("Redis unavailable, caching disabled", map[string]interface{}{
			"error": err.Error(),
		})
	}
	defer redis.Close()

	// Transactional email client for scheduled reports
	mailClient, err := mailer.NewClient(mailer.Config{
		APIKey:      cfg.Mailer.APIKey,
		BaseURL:     cfg.Mailer.BaseURL,
		FromAddress: cfg.Mailer.FromAddress,
		FromName:    cfg.Mailer.FromName,
	})
	if err != nil {
		logger.Fatal("Failed to initialize mail client", err)
	}

	// S3 storage for product image uploads
	s3Storage := storage.NewS3Storage(
		cfg.S3.Region,
		cfg.S3.Bucket,
		cfg.S3.AccessKeyID,
		cfg.S3.SecretAccessKey,
		cfg.S3.BaseURL,
	)

	// Admin stock alert hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db.GetDB())
	categoryRepo := repository.NewCategoryRepository(db.GetDB())
	productRepo := repository.NewProductRepository(db.GetDB())
	cartRepo := repository.NewCartRepository(db.GetDB())
	orderRepo := repository.NewOrderRepository(db.GetDB())
	reportRepo := repository.NewReportRepository(db.GetDB())

	// Initialize services
	authService := service.NewAuthService(userRepo, cfg.JWT)
	userService := service.NewUserService(userRepo)
	categoryService := service.NewCategoryService(categoryRepo, productRepo)
	productService := service.NewProductService(productRepo, categoryRepo)
	cartService := service.NewCartService(cartRepo, productRepo, db.GetDB())
	orderService := service.NewOrderService(orderRepo, cartRepo, db.GetDB(), hub)
	reportService := service.NewReportService(productRepo, orderRepo, reportRepo, mailClient, hub)

	// Initialize controllers
	authController := controller.NewAuthController(authService, cartService)
	userController := controller.NewUserController(userService)
	categoryController := controller.NewCategoryController(categoryService)
	productController := controller.NewProductController(productService)
	cartController := controller.NewCartController(cartService)
	orderController := controller.NewOrderController(orderService)
	uploadController := controller.NewUploadController(s3Storage)
	reportController := controller.NewReportController(reportService)
	alertController := controller.NewAlertController(hub)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	// Start the report scheduler
	reportScheduler := scheduler.NewReportScheduler(reportService, cfg.Reports)
	if err := reportScheduler.Start(); err != nil {
		logger.Fatal("Failed to start report scheduler", err)
	}
	defer reportScheduler.Stop()

	// Setup router
	r := router.NewRouter(
		authController,
		categoryController,
		productController,
		cartController,
		orderController,
		userController,
		uploadController,
		reportController,
		alertController,
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
