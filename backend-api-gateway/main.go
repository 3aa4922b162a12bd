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

	"github.com/D-Tasker207/gazpacho-backend/backend-api-gateway/internal/handler"
	gwmiddleware "github.com/D-Tasker207/gazpacho-backend/backend-api-gateway/internal/middleware"
	"github.com/D-Tasker207/gazpacho-backend/backend-api-gateway/internal/proxy"
	"github.com/D-Tasker207/gazpacho-backend/pkg/config"
	"github.com/D-Tasker207/gazpacho-backend/pkg/logger"
	"github.com/D-Tasker207/gazpacho-backend/pkg/middleware"
	pkgredis "github.com/D-Tasker207/gazpacho-backend/pkg/redis"
	"github.com/D-Tasker207/gazpacho-backend/pkg/telemetry"
	"github.com/gin-gonic/gin"
)

const serviceName = "api-gateway"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
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
	appLog.Info("Starting API Gateway...")

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

	// The gateway owns no database. Redis only shares rate limit buckets.
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
			RetryInterval: 2 * time.Second,
		}
		redisClient, err = pkgredis.NewClient(ctx, redisCfg)
		if err != nil {
			appLog.Warn(fmt.Sprintf("Redis connection failed, rate limiting will be per instance: %v", err))
			redisClient = nil
		} else {
			defer redisClient.Close()
			appLog.Info("Redis connected")
		}
	}

	// Route table
	proxyConfig := proxy.DefaultConfig(cfg.Services.UserServiceURL, cfg.Services.RecipeServiceURL, cfg.Services.RequestTimeout)
	if cfg.Services.GatewayRoutesFile != "" {
		proxyConfig, err = proxy.LoadConfig(cfg.Services.GatewayRoutesFile)
		if err != nil {
			appLog.Fatal(fmt.Sprintf("Failed to load gateway routes: %v", err))
		}
		appLog.Info(fmt.Sprintf("Gateway routes loaded from %s", cfg.Services.GatewayRoutesFile))
	}
	reverseProxy, err := proxy.NewReverseProxy(proxyConfig)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Invalid gateway routes: %v", err))
	}
	for _, r := range proxyConfig.Routes {
		appLog.Info(fmt.Sprintf("Route %s -> %s (%s)", r.PathPrefix, r.Service.Name, r.Service.BaseURL))
	}

	// Setup Gin
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// Add OpenTelemetry tracing middleware if enabled
	if cfg.OTel.Enabled {
		router.Use(telemetry.TracingMiddleware(serviceName))
	}

	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(appLog))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	// Health checks stay outside the rate limiter
	var redisPinger handler.Pinger
	if redisClient != nil {
		redisPinger = redisClient
	}
	healthHandler := handler.NewHealthHandler(reverseProxy, redisPinger)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	proxied := []gin.HandlerFunc{}
	if cfg.RateLimit.Enabled {
		limiter := gwmiddleware.NewRateLimiter(gwmiddleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.BurstSize,
			Redis:             redisClient,
		})
		defer limiter.Stop()
		proxied = append(proxied, limiter.Middleware())
		if redisClient != nil {
			appLog.Info("Rate limiting enabled (Redis-backed, distributed)")
		} else {
			appLog.Info("Rate limiting enabled (local, non-distributed)")
		}
	} else {
		appLog.Warn("Rate limiting disabled")
	}
	proxied = append(proxied, reverseProxy.Handler())

	// Everything else goes through the route table
	router.NoRoute(proxied...)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.PortOr(8080))
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	// Start server in goroutine
	go func() {
		appLog.Info(fmt.Sprintf("API Gateway listening on %s", addr))
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
