package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"studentrank/internal/config"
	"studentrank/internal/database"
	"studentrank/internal/handler"
	"studentrank/internal/service"
	"studentrank/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}
	log := setupLogger(cfg)

	if err := run(cfg, log); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	// Load the roster
	roster, err := store.Open(cfg.RosterFile, store.WithLogger(log.With("component", "store")))
	if err != nil {
		return err
	}

	// Initialize database
	db, err := database.InitDB(cfg.Database)
	if err != nil {
		return err
	}

	// Initialize services
	studentService := service.NewStudentService(roster, db, log.With("component", "students"))
	importService := service.NewImportService(studentService, log.With("component", "import"))

	if err := studentService.SyncArchive(); err != nil {
		return err
	}

	// Setup router
	router := handler.NewRouter(
		handler.NewStudentHandler(studentService),
		handler.NewUploadHandler(importService, cfg.UploadDir),
		handler.NewProgressHandler(importService),
	)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler.Wrap(router, cfg.AllowedOrigins, os.Stdout),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("server running", "addr", cfg.HTTPAddr, "roster", roster.Path(), "students", roster.Len())
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

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}

	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(h)
	slog.SetDefault(log)
	return log
}
