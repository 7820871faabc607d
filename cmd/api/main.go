package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/netscore/server/internal/auth"
	"github.com/netscore/server/internal/cache"
	"github.com/netscore/server/internal/config"
	"github.com/netscore/server/internal/db"
	httphandler "github.com/netscore/server/internal/http"
	"github.com/netscore/server/internal/http/handlers"
	"github.com/netscore/server/internal/model"
	"github.com/netscore/server/internal/notify"
	"github.com/netscore/server/internal/repo"
)

func main() {
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	if err := runMigrations(database); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	redisClient, err := db.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	secureCache, err := cache.New(redisClient, cfg.CacheSecret)
	if err != nil {
		log.Fatalf("Failed to initialize cache: %v", err)
	}

	userRepo := repo.NewUserRepo(database)
	deviceRepo := repo.NewDeviceRepo(database)
	codeRepo := repo.NewCodeRepo(database)

	issuer := auth.NewCodeIssuer(secureCache, codeRepo, auth.CodeIssuerConfig{
		TesterEmails:      cfg.TesterEmails,
		DebugMode:         cfg.CodeDebugMode,
		EmailDebugEnabled: cfg.EmailDebugEnabled,
	})
	registry := auth.NewDeviceRegistry(deviceRepo)
	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.AccessTokenExpire, cfg.RefreshTokenExpire)

	authService := auth.NewAuthService(userRepo, codeRepo, deviceRepo, registry, issuer, tokens, notify.NewLogDispatcher())
	for _, app := range cfg.ClientApps {
		authService.RegisterApplication(model.ClientApplication{
			ClientID:     app.ClientID,
			ClientSecret: app.ClientSecret,
			Name:         app.Name,
		})
	}

	authHandler := handlers.NewAuthHandler(authService)
	router := httphandler.NewRouter(authHandler, tokens, userRepo)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// runMigrations runs database migrations using goose
func runMigrations(database *sql.DB) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	migrationDir := "internal/db/migrations"
	if info, err := os.Stat(migrationDir); err != nil || !info.IsDir() {
		return fmt.Errorf("migrations directory not found (run from the module root)")
	}

	if err := goose.Up(database, migrationDir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
