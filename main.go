package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/msomdec/decision-log/internal/config"
	"github.com/msomdec/decision-log/internal/handler"
	"github.com/msomdec/decision-log/internal/repository/sqlite"
	"github.com/msomdec/decision-log/internal/service"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load configuration", "error", err)
		os.Exit(1)
	}

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database migrations applied")

	kv := db.KV()
	authService := service.NewAuthService(kv, cfg.JWTSecret, cfg.BcryptCost)
	decisionService := service.NewDecisionService(kv)

	// Restore persisted state, including any active session, before the
	// server starts taking requests.
	if err := authService.Load(context.Background()); err != nil {
		slog.Error("failed to restore users", "error", err)
		os.Exit(1)
	}
	if err := decisionService.Load(context.Background()); err != nil {
		slog.Error("failed to restore decisions", "error", err)
		os.Exit(1)
	}
	if user := authService.CurrentUser(); user != nil {
		slog.Info("session restored", "user", user.Email)
	}

	// Allow bursts of 5 credential attempts per IP, refilling one every
	// two seconds.
	limiter := service.NewRateLimiter(0.5, 5)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, authService, decisionService, limiter, cfg.CookieSecure)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.SecurityHeaders(mux),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
