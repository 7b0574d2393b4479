package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"returns-service/internal/config"
	"returns-service/internal/events"
	"returns-service/internal/handlers"
	"returns-service/internal/middleware"
	"returns-service/internal/models"
	"returns-service/internal/repository"
	"returns-service/internal/secrets"
	"returns-service/internal/services"
	"returns-service/internal/tracing"
)

// @title Returns Service API
// @version 1.0
// @description Storefront order return eligibility and return requests
// @BasePath /
func main() {
	// Load .env when present
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, using environment variables")
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	level, err := logrus.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.UsesSecretManager() {
		password, err := loadDatabasePassword(cfg)
		if err != nil {
			logger.WithError(err).Fatal("Failed to load database password from Secret Manager")
		}
		cfg.Database.Password = password
		logger.Info("Database password loaded from Secret Manager")
	}

	db, err := initDatabase(cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}

	if err := migrateDatabase(db); err != nil {
		logger.WithError(err).Fatal("Failed to migrate database")
	}

	redisClient := initRedis(cfg, logger)

	var publisher *events.Publisher
	if cfg.Events.NATSURL != "" {
		publisher, err = events.NewPublisher(cfg.Events.NATSURL, logger)
		if err != nil {
			logger.WithError(err).Warn("Continuing without return events")
			publisher = nil
		} else {
			logger.Info("NATS events publisher initialized")
		}
	} else {
		logger.Info("NATS_URL not configured, return events disabled")
	}

	shutdownTracer, err := tracing.Init(context.Background(), tracing.Config{
		ServiceName:  "returns-service",
		Environment:  cfg.App.Environment,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
	})
	if err != nil {
		logger.WithError(err).Warn("Continuing without tracing")
		shutdownTracer = nil
	}

	returnRepo := repository.NewReturnRepository(db, redisClient, logger)
	returnService := services.NewReturnService(returnRepo, publisher, logger)
	returnHandler := handlers.NewReturnHandler(returnService, logger)
	healthHandler := handlers.NewHealthHandler(returnRepo)

	router := setupRouter(cfg, returnHandler, healthHandler, logger)

	srv := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("address", srv.Addr).Info("Starting Returns Service")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down Returns Service...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	publisher.Close()

	if shutdownTracer != nil {
		if err := shutdownTracer(ctx); err != nil {
			logger.WithError(err).Error("Error shutting down tracer provider")
		}
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.WithError(err).Warn("Error closing Redis client")
		}
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	logger.Info("Returns service stopped")
}

// loadDatabasePassword reads the database password from Google Secret Manager
func loadDatabasePassword(cfg *config.Config) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sm, err := secrets.NewGCPSecretManager(ctx, cfg.Secrets.GCPProjectID)
	if err != nil {
		return "", err
	}
	defer sm.Close()

	return sm.GetSecret(ctx, cfg.Secrets.DBPasswordSecret)
}

// initDatabase initializes the database connection
func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{}
	if cfg.IsProduction() {
		gormCfg.Logger = gormlogger.Default.LogMode(gormlogger.Silent)
	}

	db, err := gorm.Open(postgres.Open(cfg.GetDatabaseDSN()), gormCfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// migrateDatabase creates the return ledger table. The order tables belong to
// the commerce platform and are only read.
func migrateDatabase(db *gorm.DB) error {
	return db.AutoMigrate(&models.ReturnLedgerEntry{})
}

// initRedis connects the optional line item cache. Any failure disables caching.
func initRedis(cfg *config.Config, logger *logrus.Logger) *redis.Client {
	if cfg.Cache.RedisURL == "" {
		logger.Info("REDIS_URL not configured, caching disabled")
		return nil
	}

	opt, err := redis.ParseURL(cfg.Cache.RedisURL)
	if err != nil {
		logger.WithError(err).Warn("Invalid REDIS_URL, continuing without Redis caching")
		return nil
	}

	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("Failed to connect to Redis, continuing without caching")
		_ = client.Close()
		return nil
	}

	logger.Info("Connected to Redis for line item caching")
	return client
}

func setupRouter(cfg *config.Config, returnHandler *handlers.ReturnHandler, healthHandler *handlers.HealthHandler, logger *logrus.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger, "/health", "/ready", "/metrics"))
	router.Use(middleware.Metrics())
	router.Use(middleware.WildcardOrigin())
	router.Use(middleware.SetupCORS(cfg.CORS.AllowedOrigins))

	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/metrics", middleware.MetricsHandler())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	rest := router.Group("/rest/V1")
	{
		rest.POST("/checkOrderReturn", returnHandler.CheckOrderReturn)
		rest.OPTIONS("/checkOrderReturn", middleware.Preflight)
		rest.POST("/requestOrderReturn", returnHandler.RequestOrderReturn)
		rest.OPTIONS("/requestOrderReturn", middleware.Preflight)
	}

	return router
}
