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

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"authkit-session/internal/authkit"
	"authkit-session/internal/browser"
	"authkit-session/internal/common/logging"
	"authkit-session/internal/config"
	"authkit-session/internal/handlers"
	"authkit-session/internal/locks"
	"authkit-session/internal/middleware"
	"authkit-session/internal/oauth2"
	"authkit-session/internal/redis"
	"authkit-session/internal/storage"
	"authkit-session/internal/storage/postgres"
	"authkit-session/internal/storage/sqlite"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to load .env: %v", err)
	}

	if err := logging.InitGlobalLogger(); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logging.MustSync()
	logger := logging.GetGlobalLogger()

	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx := context.Background()

	// Redis backs the redis store and the storage/redsync locks
	var redisClient *redis.Client
	if cfg.UsesRedis() {
		var err error
		redisClient, err = redis.NewClient(&redis.Config{
			Address:   cfg.RedisAddress,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDBNumber(),
			PoolSize:  cfg.RedisPoolSizeNumber(),
			KeyPrefix: cfg.RedisKeyPrefix,
		})
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
	}

	// Persistent store for the development refresh token
	persistent, err := storage.NewPersistent(ctx, storage.Config{
		Type:          cfg.PersistentStore,
		Redis:         redisClient,
		SQLite:        &sqlite.Config{DatabasePath: cfg.SQLitePath},
		Postgres:      &postgres.Config{DSN: cfg.PostgresDSN},
		EncryptionKey: cfg.EncryptionKey,
	})
	if err != nil {
		log.Fatalf("Failed to initialize persistent store: %v", err)
	}
	if closer, ok := persistent.(interface{ Close() error }); ok && cfg.PersistentStore != storage.TypeRedis {
		defer closer.Close()
	}

	backend, err := locks.ParseBackend(cfg.LockBackend)
	if err != nil {
		log.Fatalf("Invalid lock backend: %v", err)
	}
	locker, err := locks.Select(locks.Options{Force: backend, Redis: redisClient, Logger: logger})
	if err != nil {
		log.Fatalf("Failed to initialize lock: %v", err)
	}

	// One tab: its storage outlives every page load
	tab := storage.NewMemoryStore()
	load := func(ctx context.Context, href string) (handlers.Session, error) {
		window := browser.NewMemoryWindow(href).
			WithSessionStorage(tab).
			WithLocalStorage(persistent)

		opts := []authkit.Option{
			authkit.WithRedirectURI(cfg.RedirectURI),
			authkit.WithAPIHostname(cfg.APIHostname),
			authkit.WithHTTPS(cfg.APIHTTPS),
			authkit.WithPort(cfg.APIPortNumber()),
			authkit.WithRefreshBuffer(cfg.RefreshBuffer()),
			authkit.WithAutoRefreshInterval(cfg.AutoRefreshEvery()),
			authkit.WithLockTimeout(cfg.LockWait()),
			authkit.WithLocker(locker),
			authkit.WithWindow(window),
			authkit.WithLogger(logger),
			authkit.WithOnRefresh(func(resp oauth2.OnRefreshResponse) {
				logger.Debug("Session refreshed", logging.Field{Key: "user_id", Value: resp.User.ID})
			}),
			authkit.WithOnRefreshFailure(func(p authkit.RefreshFailureParams) {
				logger.Warn("Session ended, sign in again", logging.Err(p.Err))
			}),
		}
		if devMode := cfg.DevModeOverride(); devMode != nil {
			opts = append(opts, authkit.WithDevMode(*devMode))
		}

		client, err := authkit.CreateClient(ctx, cfg.ClientID, opts...)
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	origin := browser.Origin(cfg.RedirectURI) + "/"
	current, err := load(ctx, origin)
	if err != nil {
		log.Fatalf("Failed to create session client: %v", err)
	}

	h := handlers.New(cfg, current, load, logger)
	defer h.Close()

	// Set up routes
	router := mux.NewRouter()
	router.Use(middleware.RequestLogging(logger))
	h.Routes(router)

	// Set up HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", logging.Field{Key: "port", Value: cfg.Port}, logging.Field{Key: "lock_backend", Value: string(locker.Backend())})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	fmt.Println("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}

	fmt.Println("Server exited")
}
