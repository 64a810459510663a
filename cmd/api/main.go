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

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ellarises/web/internal/config"
	"github.com/ellarises/web/internal/identity"
	"github.com/ellarises/web/internal/identity/repo"
	"github.com/ellarises/web/internal/router"
	"github.com/ellarises/web/internal/session"
	"github.com/ellarises/web/internal/view"
	"github.com/ellarises/web/pkg/database"
	"github.com/ellarises/web/pkg/utilities"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	lg, err := utilities.Init(utilities.Config{Level: cfg.LogLevel, Dev: cfg.LogDev, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Infow("starting ella rises web", "env", cfg.AppEnv, "store", cfg.StoreBackend, "sessions", cfg.SessionBackend)

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, sugar)
	if err != nil {
		sugar.Fatalf("store: %v", err)
	}
	defer closeStore()

	sessStore, closeSessions, err := openSessionStore(ctx, cfg)
	if err != nil {
		sugar.Fatalf("session store: %v", err)
	}
	defer closeSessions()

	views, err := view.New(sugar)
	if err != nil {
		sugar.Fatalf("templates: %v", err)
	}

	sessions := session.NewManager(sessStore, cfg.SecureCookies(), sugar)
	svc := identity.NewService(store, identity.BcryptHasher{Cost: cfg.BcryptCost}, sugar)

	handler := router.RegisterRoutes(router.Deps{
		Logger:     sugar,
		Identity:   identity.NewHandler(svc, sessions, views, sugar),
		Sessions:   sessions,
		Views:      views,
		RequestIDs: utilities.NewSnowflakeGenerator(cfg.SnowflakeNode),
	})
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()
	sugar.Infow("listening", "addr", cfg.Addr)

	<-ctx.Done()

	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}

// openStore returns the account/profile store selected by STORE_BACKEND.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (repo.Store, func(), error) {
	if cfg.StoreBackend == config.StoreMemory {
		logger.Warn("using in-memory store; data is lost on restart")
		return repo.NewMemoryStore(), func() {}, nil
	}

	db, err := database.Connect(database.Config{
		DSN:            cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		Timeout:        cfg.DatabaseTimeout,
		TimeZone:       cfg.DatabaseTimeZone,
		ClientEncoding: cfg.DatabaseClientEncoding,
	})
	if err != nil {
		return nil, nil, err
	}
	if cfg.MigrateOnStart {
		if err := database.Migrate(ctx, db.DB); err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info("migrations applied")
	}
	return repo.NewPostgresStore(db), func() { _ = db.Close() }, nil
}

// openSessionStore returns the session backend selected by SESSION_BACKEND.
func openSessionStore(ctx context.Context, cfg *config.Config) (session.Store, func(), error) {
	switch cfg.SessionBackend {
	case config.SessionMemory:
		return session.NewMemoryStore(cfg.SessionTTL), func() {}, nil
	case config.SessionCookie:
		return session.NewCookieStore(cfg.SessionSecret, cfg.SessionTTL), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	return session.NewRedisStore(client, cfg.SessionTTL), func() { _ = client.Close() }, nil
}
