package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/D-Tasker207/gazpacho-backend/backend-recipe/internal/client"
	"github.com/D-Tasker207/gazpacho-backend/backend-recipe/internal/di"
	"github.com/D-Tasker207/gazpacho-backend/backend-recipe/internal/handler"
	"github.com/D-Tasker207/gazpacho-backend/backend-recipe/internal/migrations"
	"github.com/D-Tasker207/gazpacho-backend/backend-recipe/internal/repository"
	"github.com/D-Tasker207/gazpacho-backend/backend-recipe/internal/service"
	"github.com/D-Tasker207/gazpacho-backend/pkg/config"
	"github.com/D-Tasker207/gazpacho-backend/pkg/database"
	"github.com/D-Tasker207/gazpacho-backend/pkg/logger"
	"github.com/D-Tasker207/gazpacho-backend/pkg/middleware"
	pkgredis "github.com/D-Tasker207/gazpacho-backend/pkg/redis"
	"github.com/D-Tasker207/gazpacho-backend/pkg/retry"
	"github.com/D-Tasker207/gazpacho-backend/pkg/telemetry"
	"github.com/D-Tasker207/gazpacho-backend/pkg/token"
	"github.com/gin-gonic/gin"
)

const serviceName = "recipe-service"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.ValidateRecipeDatabase(); err != nil {
		log.Fatalf("Invalid database config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       cfg.App.Environment,
		ServiceName: serviceName,
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting Recipe Service...")

	ctx := context.Background()

	// Initialize OpenTelemetry
	telemetryCfg := &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}
	if _, err := telemetry.Init(ctx, telemetryCfg); err != nil {
		appLog.Warn(fmt.Sprintf("Failed to initialize telemetry: %v", err))
	} else if telemetryCfg.Enabled {
		appLog.Info(fmt.Sprintf("Telemetry initialized (collector: %s)", telemetryCfg.CollectorAddr))
	}
	defer telemetry.Shutdown(ctx)

	// Delete checks access tokens locally before asking the user service
	codec, err := token.NewCodec(cfg.JWT.TokenConfig())
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Invalid token configuration: %v", err))
	}

	// Initialize database connection
	dbCfg := &database.PostgresConfig{
		Host:            cfg.RecipeDatabase.Host,
		Port:            cfg.RecipeDatabase.Port,
		User:            cfg.RecipeDatabase.User,
		Password:        cfg.RecipeDatabase.Password,
		Database:        cfg.RecipeDatabase.DBName,
		SSLMode:         cfg.RecipeDatabase.SSLMode,
		MaxConns:        int32(cfg.RecipeDatabase.MaxOpenConns),
		MinConns:        int32(cfg.RecipeDatabase.MaxIdleConns),
		MaxConnLifetime: cfg.RecipeDatabase.ConnMaxLifetime,
		MaxConnIdleTime: cfg.RecipeDatabase.ConnMaxIdleTime,
		ConnectTimeout:  5 * time.Second,
		MaxRetries:      3,
		RetryInterval:   1 * time.Second,
		EnableTracing:   cfg.OTel.Enabled,
	}
	db, err := database.NewGorm(ctx, dbCfg)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Database connection failed: %v", err))
	}
	defer db.Close()
	appLog.Info(fmt.Sprintf("Database connected (pool: min=%d, max=%d)", dbCfg.MinConns, dbCfg.MaxConns))

	if cfg.RecipeDatabase.AutoMigrate {
		if err := db.Migrate(ctx, migrations.FS); err != nil {
			appLog.Fatal(fmt.Sprintf("Database migration failed: %v", err))
		}
		appLog.Info("Database migrations applied")
	}

	// Redis backs the recipe cache and idempotent batch inserts. It is optional.
	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		redisCfg := &pkgredis.Config{
			Host:          cfg.Redis.Host,
			Port:          cfg.Redis.Port,
			Password:      cfg.Redis.Password,
			DB:            cfg.Redis.DB,
			PoolSize:      cfg.Redis.PoolSize,
			MinIdleConns:  cfg.Redis.MinIdleConns,
			DialTimeout:   cfg.Redis.DialTimeout,
			ReadTimeout:   cfg.Redis.ReadTimeout,
			WriteTimeout:  cfg.Redis.WriteTimeout,
			MaxRetries:    3,
			RetryInterval: 1 * time.Second,
		}
		redisClient, err = pkgredis.NewClient(ctx, redisCfg)
		if err != nil {
			appLog.Warn(fmt.Sprintf("Redis unavailable, running without cache: %v", err))
			redisClient = nil
		} else {
			defer redisClient.Close()
			appLog.Info(fmt.Sprintf("Redis connected (pool: %d, minIdle: %d)", redisCfg.PoolSize, redisCfg.MinIdleConns))
		}
	}

	// Initialize Kafka event publisher
	var eventPublisher service.EventPublisher
	if cfg.Kafka.Enabled {
		kafkaPublisher, err := service.NewKafkaEventPublisher(ctx, &service.EventPublisherConfig{
			Brokers:     cfg.Kafka.Brokers,
			Topic:       cfg.Kafka.RecipeEventsTopic,
			ServiceName: serviceName,
			ClientID:    cfg.Kafka.ClientID + "-" + serviceName,
		})
		if err != nil {
			appLog.Warn(fmt.Sprintf("Failed to create Kafka publisher, saved lists will not follow deletions: %v", err))
			eventPublisher = service.NewNoOpEventPublisher()
		} else {
			eventPublisher = kafkaPublisher
			appLog.Info(fmt.Sprintf("Kafka event publisher initialized (topic: %s)", cfg.Kafka.RecipeEventsTopic))
		}
	} else {
		eventPublisher = service.NewNoOpEventPublisher()
		appLog.Info("Kafka disabled, recipe events will not be published")
	}
	defer eventPublisher.Close()

	// User service client used to check admin rights on delete
	userClient := client.NewUserClient(&client.UserClientConfig{
		BaseURL: cfg.Services.UserServiceURL,
		Timeout: cfg.Services.RequestTimeout,
		Retry:   retry.DefaultConfig(),
	})

	// Build dependency injection container
	container := di.NewContainer(&di.ContainerConfig{
		DB:             db,
		Redis:          redisClient,
		CacheTTL:       repository.DefaultRecipeCacheTTL,
		Tokens:         codec,
		UserClient:     userClient,
		EventPublisher: eventPublisher,
		ServiceConfig: &service.RecipeServiceConfig{
			MaxBatchSize: 100,
		},
	})

	// Setup Gin
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(appLog))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	// Add OpenTelemetry tracing middleware if enabled
	if cfg.OTel.Enabled {
		router.Use(telemetry.TracingMiddleware(serviceName))
	}

	var writeMiddleware []gin.HandlerFunc
	if redisClient != nil {
		writeMiddleware = append(writeMiddleware, middleware.Idempotency(middleware.IdempotencyConfig{
			Redis: redisClient,
		}))
	}
	handler.RegisterRoutes(router, container.RecipeHandler, container.HealthHandler, middleware.Auth(codec), writeMiddleware...)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.PortOr(8082))
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	// Start server in goroutine
	go func() {
		appLog.Info(fmt.Sprintf("Recipe Service listening on %s", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal(fmt.Sprintf("Failed to start server: %v", err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error(fmt.Sprintf("Server forced to shutdown: %v", err))
	}

	appLog.Info("Server exited gracefully")
}
