package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"shopledger/internal/cache"
	"shopledger/internal/config"
	"shopledger/internal/httpapi"
	"shopledger/internal/service"
	"shopledger/internal/store"
	"shopledger/internal/store/memory"
	"shopledger/internal/store/postgres"
)

func main() {
	// Missing .env is fine; the environment may carry everything.
	_ = godotenv.Load()

	cfg := config.Load()
	ctx := context.Background()

	var closers []io.Closer

	var repo store.Repository
	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("connect postgres: %v", err)
		}
		closers = append(closers, pg)
		repo = pg
		log.Printf("repository: postgres")
	} else {
		repo = memory.NewSeeded()
		log.Printf("repository: in-memory (set DATABASE_URL for persistence)")
	}

	var orderCache cache.OrderCache = cache.NoopOrderCache{}
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedisOrderCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Printf("redis unavailable, order cache disabled: %v", err)
		} else {
			closers = append(closers, rc)
			orderCache = rc
			log.Printf("cache: redis at %s", cfg.RedisAddr)
		}
	}

	svc := service.New(repo, orderCache,
		time.Duration(cfg.OrderCacheTTLSeconds)*time.Second,
		time.Duration(cfg.PostTimeoutSeconds)*time.Second)

	api := httpapi.New(svc, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	for _, c := range closers {
		if err := c.Close(); err != nil {
			log.Printf("close: %v", err)
		}
	}
}
