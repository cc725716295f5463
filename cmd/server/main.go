package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nomiko-backend/analysis"
	"nomiko-backend/config"
	"nomiko-backend/handlers"
	"nomiko-backend/llm"
	"nomiko-backend/logger"
	"nomiko-backend/service"
	"nomiko-backend/storage"
)

const evictionInterval = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	reportStorage, err := storage.NewStorage(cfg.Storage)
	if err != nil {
		return err
	}
	zl.Info("Storage initialized", zap.String("type", string(cfg.Storage.Type)))

	// Initialize Gemini transport
	transport, err := llm.NewGeminiTransport(ctx, cfg.Gemini(), zl.Named("llm"))
	if err != nil {
		return err
	}
	defer transport.Close()

	invoker, err := analysis.NewInvoker(
		analysis.WithTransport(transport),
		analysis.WithLogger(zl.Named("analysis")),
	)
	if err != nil {
		return err
	}

	// Initialize services
	reportService := service.NewReportService(
		service.ReportWithStorage(reportStorage),
		service.ReportWithLogger(zl.Named("reports")),
	)
	registry := service.NewSessionRegistry(
		service.RegistryWithInvoker(invoker),
		service.RegistryWithReportService(reportService),
		service.RegistryWithLogger(zl.Named("dashboard")),
		service.RegistryWithIdleTTL(cfg.SessionIdleTTL),
	)
	go registry.Run(ctx, evictionInterval)

	// Initialize handlers
	gin.SetMode(gin.ReleaseMode)
	router := handlers.NewRouter(
		handlers.NewSessionHandler(registry),
		handlers.NewReportHandler(reportService),
		zl.Named("http"),
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("Server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zl.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
