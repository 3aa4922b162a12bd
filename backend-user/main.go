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

	"github.com/D-Tasker207/gazpacho-backend/backend-user/internal/client"
	"github.com/D-Tasker207/gazpacho-backend/backend-user/internal/consumer"
	"github.com/D-Tasker207/gazpacho-backend/backend-user/internal/di"
	"github.com/D-Tasker207/gazpacho-backend/backend-user/internal/handler"
	"github.com/D-Tasker207/gazpacho-backend/backend-user/internal/migrations"
	"github.com/D-Tasker207/gazpacho-backend/backend-user/internal/service"
	"github.com/D-Tasker207/gazpacho-backend/pkg/config"
	"github.com/D-Tasker207/gazpacho-backend/pkg/database"
	"github.com/D-Tasker207/gazpacho-backend/pkg/kafka"
	"github.com/D-Tasker207/gazpacho-backend/pkg/logger"
	"github.com/D-Tasker207/gazpacho-backend/pkg/middleware"
	"github.com/D-Tasker207/gazpacho-backend/pkg/retry"
	"github.com/D-Tasker207/gazpacho-backend/pkg/telemetry"
	"github.com/D-Tasker207/gazpacho-backend/pkg/token"
	"github.com/gin-gonic/gin"
)

const serviceName = "user-service"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.ValidateUserDatabase(); err != nil {
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
	appLog.Info("Starting User Service...")

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

	// Token codec. Secrets were validated by config.Load, this only fails on a bug.
	codec, err := token.NewCodec(cfg.JWT.TokenConfig())
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Invalid token configuration: %v", err))
	}

	// Initialize database connection
	dbCfg := &database.PostgresConfig{
		Host:            cfg.UserDatabase.Host,
		Port:            cfg.UserDatabase.Port,
		User:            cfg.UserDatabase.User,
		Password:        cfg.UserDatabase.Password,
		Database:        cfg.UserDatabase.DBName,
		SSLMode:         cfg.UserDatabase.SSLMode,
		MaxConns:        int32(cfg.UserDatabase.MaxOpenConns),
		MinConns:        int32(cfg.UserDatabase.MaxIdleConns),
		MaxConnLifetime: cfg.UserDatabase.ConnMaxLifetime,
		MaxConnIdleTime: cfg.UserDatabase.ConnMaxIdleTime,
		ConnectTimeout:  5 * time.Second,
		MaxRetries:      3,
		RetryInterval:   1 * time.Second,
		EnableTracing:   cfg.OTel.Enabled,
	}
	db, err := database.NewPostgres(ctx, dbCfg)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Database connection failed: %v", err))
	}
	defer db.Close()
	appLog.Info(fmt.Sprintf("Database connected (pool: min=%d, max=%d)", dbCfg.MinConns, dbCfg.MaxConns))

	if cfg.UserDatabase.AutoMigrate {
		if err := db.Migrate(ctx, migrations.FS); err != nil {
			appLog.Fatal(fmt.Sprintf("Database migration failed: %v", err))
		}
		appLog.Info("Database migrations applied")
	}

	// Recipe service client used to check recipes before saving them
	recipeClient := client.NewRecipeClient(&client.RecipeClientConfig{
		BaseURL: cfg.Services.RecipeServiceURL,
		Timeout: cfg.Services.RequestTimeout,
		Retry:   retry.DefaultConfig(),
	})

	// Build dependency injection container
	container := di.NewContainer(&di.ContainerConfig{
		DB:           db,
		Tokens:       codec,
		RecipeClient: recipeClient,
		ServiceConfig: &service.IdentityServiceConfig{
			BcryptCost: 12,
		},
	})

	// Start the recipe event consumer
	var eventConsumer *consumer.RecipeEventConsumer
	var dlqProducer *kafka.Producer
	if cfg.Kafka.Enabled {
		eventConsumer, dlqProducer = startRecipeEventConsumer(ctx, cfg, container)
	} else {
		appLog.Info("Kafka disabled, saved lists will not follow recipe deletions")
	}

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

	handler.RegisterRoutes(router, container.UserHandler, container.HealthHandler)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.PortOr(8081))
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
		appLog.Info(fmt.Sprintf("User Service listening on %s", addr))
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

	if eventConsumer != nil {
		eventConsumer.Stop()
	}
	if dlqProducer != nil {
		dlqProducer.Close()
	}

	appLog.Info("Server exited gracefully")
}

// startRecipeEventConsumer joins the recipe events consumer group. Kafka being
// unreachable is logged and the service keeps serving HTTP.
func startRecipeEventConsumer(ctx context.Context, cfg *config.Config, container *di.Container) (*consumer.RecipeEventConsumer, *kafka.Producer) {
	appLog := logger.Get()

	source, err := kafka.NewConsumer(ctx, &kafka.ConsumerConfig{
		Brokers:       cfg.Kafka.Brokers,
		GroupID:       cfg.Kafka.ConsumerGroup + "-" + serviceName,
		Topics:        []string{cfg.Kafka.RecipeEventsTopic},
		ClientID:      cfg.Kafka.ClientID + "-" + serviceName,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
	})
	if err != nil {
		appLog.Warn(fmt.Sprintf("Recipe event consumer disabled: %v", err))
		return nil, nil
	}

	var publisher retry.DLQPublisher
	producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
		Brokers:  cfg.Kafka.Brokers,
		ClientID: cfg.Kafka.ClientID + "-" + serviceName + "-dlq",
	})
	if err != nil {
		appLog.Warn(fmt.Sprintf("DLQ producer unavailable, failed events will be dropped: %v", err))
	} else {
		publisher = retry.NewKafkaDLQPublisher(producer)
	}

	c := consumer.NewRecipeEventConsumer(&consumer.RecipeEventConsumerConfig{
		Source:  source,
		Remover: container.IdentityService,
		DLQ: retry.NewDLQHandler(&retry.Config{
			MaxRetries:      3,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			Multiplier:      2,
			JitterFactor:    0.1,
		}, publisher, serviceName),
		Logger: appLog,
	})
	go c.Start(context.Background())
	appLog.Info(fmt.Sprintf("Recipe event consumer listening on %s", cfg.Kafka.RecipeEventsTopic))

	return c, producer
}
