package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"homeserve/internal/cache"
	"homeserve/internal/config"
	"homeserve/internal/database"
	"homeserve/internal/logger"
	"homeserve/internal/mail"
	"homeserve/internal/metrics"
	"homeserve/internal/server"
)

// @title           homeserve API
// @version         1.0
// @description     Household-services platform: accounts, verification codes and the service catalog.

// @host      localhost:8080
// @BasePath  /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @securityDefinitions.apikey APIKeyAuth
// @in header
// @name X-API-Key

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbManager, err := database.NewManager(database.NewConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnf("database close error: %v", err)
		}
	}()

	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	db := dbManager.DB()
	if err := database.SeedRolesAndPermissions(db); err != nil {
		return fmt.Errorf("failed to seed roles: %w", err)
	}
	if err := database.SeedAdmin(db, appConfig.SeedAdminUsername, appConfig.SeedAdminPassword); err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}

	redisClient, err := cache.Connect(appConfig.RedisAddr, appConfig.RedisPassword, appConfig.RedisDB)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisClient.Close()
	store := cache.NewRedisStore(redisClient, appConfig.RedisKeyPrefix)

	// Seeding may have changed role permissions.
	if _, err := store.DeleteByPattern(context.Background(), "perm:user:*"); err != nil {
		log.Warnf("failed to flush permission cache: %v", err)
	}

	var mailer mail.Sender = mail.LogSender{}
	if appConfig.SMTPHost != "" {
		mailer = mail.NewSMTPSender(appConfig.SMTPHost, appConfig.SMTPPort,
			appConfig.SMTPUsername, appConfig.SMTPPassword, appConfig.SMTPFrom)
	} else {
		log.Warn("SMTP_HOST not set, verification mail will only be logged")
	}

	metrics.MustRegister()

	router := server.NewRouter(server.Deps{
		DB:     db,
		Store:  store,
		Mailer: mailer,
		Config: appConfig,
	})

	srv := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting homeserve API on port %s", appConfig.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		log.Infow("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
