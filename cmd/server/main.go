package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/produce-grader/internal/ai"
	"github.com/ahmetcoskunkizilkaya/produce-grader/internal/config"
	"github.com/ahmetcoskunkizilkaya/produce-grader/internal/database"
	"github.com/ahmetcoskunkizilkaya/produce-grader/internal/logging"
	"github.com/ahmetcoskunkizilkaya/produce-grader/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/produce-grader/internal/server"
	"github.com/ahmetcoskunkizilkaya/produce-grader/internal/store"
)

func main() {
	// Structured logging (JSON to stdout)
	stdoutHandler := logging.Setup()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Storage: in-memory prototype mode, or a database
	var (
		db          *gorm.DB
		reportStore store.ReportStore
		dbLogs      *logging.DBHandler
		cleanupDone = make(chan struct{})
	)
	if cfg.UsesDatabase() {
		var err error
		db, err = database.Connect(cfg)
		if err != nil {
			slog.Error("database connection failed", "error", err)
			os.Exit(1)
		}
		if err := database.Migrate(db); err != nil {
			slog.Error("migration failed", "error", err)
			os.Exit(1)
		}
		reportStore = store.NewGormStore(db)

		// ERROR+ records also go to system_logs (async batch)
		dbLogs = logging.NewDBHandler(db, 5*time.Second)
		slog.SetDefault(slog.New(logging.NewMultiHandler(stdoutHandler, dbLogs)))
		logging.StartCleanup(db, cfg.LogRetention, cleanupDone)
	} else {
		slog.Warn("no database configured, reports are kept in memory and lost on restart")
		reportStore = store.NewMemoryStore()
	}

	// AI providers; none configured means demo mode
	providers, err := ai.BuildProviders(ai.ProviderConfig{
		Order:        cfg.AIProviders,
		OpenAIAPIKey: cfg.OpenAIAPIKey,
		OpenAIAPIURL: cfg.OpenAIAPIURL,
		OpenAIModel:  cfg.OpenAIModel,
		GeminiAPIKey: cfg.GeminiAPIKey,
		GeminiModel:  cfg.GeminiModel,
	})
	if err != nil {
		slog.Error("AI provider setup failed", "error", err)
		os.Exit(1)
	}
	grader := ai.NewGrader(cfg.AITimeout, providers...)
	if grader.Demo() {
		slog.Warn("no AI provider credentials configured, grading runs in demo mode")
	} else {
		slog.Info("AI grading enabled", "providers", grader.Mode(), "timeout", cfg.AITimeout.String())
	}

	// Auth
	var verifier middleware.TokenVerifier
	if cfg.AuthMode == config.AuthOIDC {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		v, err := middleware.NewOIDCVerifier(ctx, cfg.OIDCIssuer, cfg.OIDCAudience)
		cancel()
		if err != nil {
			slog.Error("OIDC verifier setup failed", "issuer", cfg.OIDCIssuer, "error", err)
			os.Exit(1)
		}
		verifier = v
	}
	slog.Info("auth configured", "mode", cfg.AuthMode)

	// Sentry error tracking
	sentryEnabled := false
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			sentryEnabled = true
			defer sentry.Flush(2 * time.Second)
		}
	}

	app := server.New(cfg, server.Dependencies{
		Store:     reportStore,
		Grader:    grader,
		Verifier:  verifier,
		Sentry:    sentryEnabled,
		AccessLog: true,
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	// In-flight grading requests run to completion before Shutdown returns.
	if err := app.ShutdownWithTimeout(cfg.AITimeout + 10*time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	close(cleanupDone)
	for _, p := range providers {
		if gp, ok := p.(*ai.GeminiProvider); ok {
			if err := gp.Close(); err != nil {
				slog.Warn("gemini client close error", "error", err)
			}
		}
	}
	if dbLogs != nil {
		dbLogs.Stop()
	}
	sentry.Flush(2 * time.Second)

	// Close database connections
	if db != nil {
		if err := database.Close(db); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}
