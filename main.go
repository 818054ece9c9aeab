package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"carsales/api"
	"carsales/internal/catalog"
	"carsales/internal/corenotify"
	"carsales/internal/sales"
	"carsales/internal/store"
)

const (
	notifyQueueSize = 256
	notifyWorkers   = 4
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	addr := getenv("HTTP_ADDR", ":8081")
	coreBaseURL := getenv("CORE_BASE_URL", "http://localhost:8080")

	var (
		carStorage catalog.Storage
		ledger     sales.Ledger
		runner     sales.Atomic
	)
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		pool, err := pgxpool.New(context.Background(), dsn)
		if err != nil {
			logger.Fatal("failed to create postgres pool", zap.Error(err))
		}
		defer pool.Close()
		if err := pool.Ping(context.Background()); err != nil {
			logger.Fatal("failed to ping postgres", zap.Error(err))
		}
		carStorage = catalog.NewPostgresStorage(pool)
		ledger = sales.NewPostgresLedger(pool)
		runner = store.NewPgxRunner(pool)
		logger.Info("using postgres storage")
	} else {
		carStorage = catalog.NewLocalStorage()
		ledger = sales.NewLocalLedger()
		logger.Info("using in-memory storage")
	}

	notifier := corenotify.New(coreBaseURL, logger, notifyQueueSize, notifyWorkers)
	syncService := catalog.NewSyncService(carStorage, logger)
	salesService := sales.NewService(ledger, carStorage, notifier, runner, logger)

	r := gin.Default()
	api.InitRoutes(r, salesService, syncService, logger)

	srv := &http.Server{Addr: addr, Handler: r}
	go func() {
		logger.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}

	// Drain pending Core notifications before exiting.
	notifier.Close()
	logger.Info("server stopped")
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
