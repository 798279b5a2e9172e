package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/yourusername/lyrics-catalog/internal/backup"
	"github.com/yourusername/lyrics-catalog/internal/challenge"
	"github.com/yourusername/lyrics-catalog/internal/config"
	"github.com/yourusername/lyrics-catalog/internal/database"
	"github.com/yourusername/lyrics-catalog/internal/handlers"
	"github.com/yourusername/lyrics-catalog/internal/logging"
	"github.com/yourusername/lyrics-catalog/internal/ratelimit"
	"github.com/yourusername/lyrics-catalog/internal/server"
	"github.com/yourusername/lyrics-catalog/internal/typesense"
)

func main() {
	// Load environment variables
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Init(logging.Config{})
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if envErr != nil {
		log.Info().Msg("No .env file found, using system environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg.DatabaseURL, cfg.DatabaseMaxOpenConns)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if cfg.DatabaseAutoSchema {
		if err := db.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply schema")
		}
		log.Info().Msg("Database schema ensured")
	}

	opts := []handlers.Option{handlers.WithClientIPHeader(cfg.ClientIPHeader)}

	// Typesense is optional
	if cfg.TypesenseEnabled() {
		ts, err := typesense.New(ctx, cfg.TypesenseAPIKey, cfg.TypesenseHost)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Typesense")
		}
		opts = append(opts, handlers.WithIndex(ts))
		log.Info().Str("host", cfg.TypesenseHost).Msg("Typesense client initialized")
	} else {
		log.Info().Msg("Typesense is disabled, lyrics search is unavailable")
	}

	var backups *backup.Manager
	if cfg.BackupEnabled {
		backups = backup.NewManager(cfg.DatabaseURL, cfg.BackupDir, cfg.BackupEditThreshold)
		backups.Start(ctx)
		opts = append(opts, handlers.WithBackups(backups))
		log.Info().Str("dir", cfg.BackupDir).Int("edit_threshold", cfg.BackupEditThreshold).Msg("Backups enabled")
	}

	if cfg.TurnstileSecret == "" {
		log.Warn().Msg("TURNSTILE_SECRET is not set, report and contact submissions will be rejected")
	}
	verifier := challenge.NewTurnstile(cfg.TurnstileSecret, cfg.TurnstileVerifyURL, cfg.TurnstileTimeout)
	views := ratelimit.NewViewLimiter(ratelimit.WithWindow(cfg.ViewWindow))

	h := handlers.New(db, views, verifier, opts...)

	if cfg.AdminToken == "" {
		log.Warn().Msg("ADMIN_TOKEN is not set, admin routes are unauthenticated")
	}
	app := server.New(h, server.Config{
		StaticDir:        cfg.StaticDir,
		AdminToken:       cfg.AdminToken,
		AllowOrigins:     cfg.AllowedOrigins(),
		ClientIPHeader:   cfg.ClientIPHeader,
		SubmitRateMax:    cfg.SubmitRateMax,
		SubmitRateWindow: cfg.SubmitRateWindow,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("static_dir", cfg.StaticDir).Msg("Server starting")
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("Failed to start server")
		}
	case <-ctx.Done():
		log.Info().Msg("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
	}
	if backups != nil {
		stop()
		backups.Wait()
	}
	log.Info().Msg("Server stopped")
}
