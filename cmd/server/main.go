// cmd/server/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/leaguehq/leaguehq/internal/booking"
	"github.com/leaguehq/leaguehq/internal/config"
	"github.com/leaguehq/leaguehq/internal/db"
	"github.com/leaguehq/leaguehq/internal/email"
	"github.com/leaguehq/leaguehq/internal/events"
	"github.com/leaguehq/leaguehq/internal/ratelimit"
	"github.com/leaguehq/leaguehq/internal/scheduler"
)

const shutdownTimeout = 30 * time.Second

func setupLogger(environment string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func loadConfig() (*config.Config, error) {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	if *configPath == "" {
		if env := os.Getenv("CONFIG_PATH"); env != "" {
			*configPath = env
		}
	}
	if *configPath == "" {
		log.Warn().Msg("No config file specified, using defaults")
		return config.Default(), nil
	}
	return config.Load(*configPath)
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg.App.Environment)

	database, err := db.NewFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer database.Close()

	engine := booking.NewEngine(database)

	var publisher *events.Publisher
	if cfg.Events.Enabled {
		publisher = events.NewPublisher(cfg.Events.URL)
	}

	var emailClient email.EmailSender
	if cfg.Email.Enabled {
		client, err := email.NewSESClient(cfg.Email.AccessKeyID, cfg.Email.SecretAccessKey, cfg.Email.Region, cfg.Email.Sender)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize email client")
		}
		emailClient = client
	}

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(&ratelimit.Config{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
			TrustProxy:        cfg.RateLimit.TrustProxy,
		})
		defer limiter.Close()
	}

	if cfg.Scheduler.Enabled {
		if err := scheduler.Init(); err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize scheduler")
		}
		if err := scheduler.RegisterNoShowJob(engine, cfg.Scheduler.NoShowCron); err != nil {
			log.Fatal().Err(err).Msg("Failed to register no-show job")
		}
		if err := scheduler.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start scheduler")
		}
	}

	server := newServer(cfg, database, engine, publisher, emailClient, limiter)

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Run server
	g.Go(func() error {
		log.Info().Int("port", cfg.App.Port).Msg("Starting server")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Wait for interrupt signal
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		log.Info().Msg("Shutting down server")
		if cfg.Scheduler.Enabled {
			if err := scheduler.Stop(); err != nil {
				log.Error().Err(err).Msg("Scheduler shutdown error")
			}
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server terminated with error")
		os.Exit(1)
	}
}
