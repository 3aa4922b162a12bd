// Command promote-admin grants the admin flag to an existing user.
//
//	promote-admin -email someone@example.com [-env path/to/.env]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/D-Tasker207/gazpacho-backend/backend-user/internal/domain"
	"github.com/D-Tasker207/gazpacho-backend/backend-user/internal/repository"
	"github.com/D-Tasker207/gazpacho-backend/backend-user/internal/service"
	"github.com/D-Tasker207/gazpacho-backend/pkg/config"
	"github.com/D-Tasker207/gazpacho-backend/pkg/database"
	"github.com/D-Tasker207/gazpacho-backend/pkg/logger"
	"github.com/D-Tasker207/gazpacho-backend/pkg/token"
	"go.uber.org/zap"
)

func main() {
	email := flag.String("email", "", "email of the user to promote")
	envFile := flag.String("env", "", "env file to load instead of ./.env")
	flag.Parse()

	if *email == "" {
		fmt.Fprintln(os.Stderr, "usage: promote-admin -email <email>")
		os.Exit(2)
	}

	load := config.Load
	if *envFile != "" {
		load = func() (*config.Config, error) { return config.LoadWithPath(*envFile) }
	}
	cfg, err := load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.ValidateUserDatabase(); err != nil {
		log.Fatalf("Invalid database config: %v", err)
	}

	if err := logger.Init(&logger.Config{Level: "info", ServiceName: "promote-admin"}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLog := logger.Get()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.NewPostgres(ctx, &database.PostgresConfig{
		Host:           cfg.UserDatabase.Host,
		Port:           cfg.UserDatabase.Port,
		User:           cfg.UserDatabase.User,
		Password:       cfg.UserDatabase.Password,
		Database:       cfg.UserDatabase.DBName,
		SSLMode:        cfg.UserDatabase.SSLMode,
		MaxConns:       2,
		MinConns:       1,
		ConnectTimeout: 5 * time.Second,
		MaxRetries:     1,
		RetryInterval:  time.Second,
	})
	if err != nil {
		appLog.Fatal("Database connection failed", zap.Error(err))
	}
	defer db.Close()

	codec, err := token.NewCodec(cfg.JWT.TokenConfig())
	if err != nil {
		appLog.Fatal("Invalid token configuration", zap.Error(err))
	}

	// Promotion never touches the recipe catalog
	svc := service.NewIdentityService(repository.NewPostgresUserRepository(db.Pool()), codec, nil, nil)

	if err := svc.PromoteAdmin(ctx, *email); err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			appLog.Fatal("No user with that email", zap.String("email", *email))
		}
		appLog.Fatal("Failed to promote user", zap.Error(err))
	}

	appLog.Info("User promoted to admin", zap.String("email", *email))
}
