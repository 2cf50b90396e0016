// Package app wires storage, channels, dispatch, scheduling and the
// HTTP surfaces together.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nimeshka/leadline/internal/api"
	"github.com/nimeshka/leadline/internal/channel"
	"github.com/nimeshka/leadline/internal/channel/email"
	"github.com/nimeshka/leadline/internal/channel/whatsapp"
	"github.com/nimeshka/leadline/internal/config"
	"github.com/nimeshka/leadline/internal/db"
	"github.com/nimeshka/leadline/internal/dispatch"
	"github.com/nimeshka/leadline/internal/metrics"
	"github.com/nimeshka/leadline/internal/repository"
	"github.com/nimeshka/leadline/internal/scheduler"
	"github.com/nimeshka/leadline/internal/stats"
)

// App is the main application.
type App struct {
	config        *config.Config
	database      *db.DB
	stats         *stats.Recorder
	session       *whatsapp.Session
	engine        *dispatch.Engine
	scheduler     *scheduler.Scheduler
	apiServer     *api.Server
	metricsServer *metrics.Server
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

// New creates the application from configuration.
func New(cfg *config.Config) (*App, error) {
	logger := setupLogger(cfg.Logging)

	database, err := db.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := database.Migrate(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	recorder, err := stats.NewRecorder(cfg.Stats.Path, cfg.Stats.FlushInterval, logger)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to open stats storage: %w", err)
	}

	users := repository.NewUserRepository(database.DB)
	leads := repository.NewLeadRepository(database.DB)
	templates := repository.NewTemplateRepository(database.DB)
	campaigns := repository.NewCampaignRepository(database.DB)
	settings := repository.NewSettingsRepository(database.DB)

	m := metrics.New()

	// The WhatsApp session is optional: without a gateway the channel
	// stays unconfigured and email campaigns still work.
	var session *whatsapp.Session
	var whatsappSender channel.Sender
	if cfg.WhatsApp.GatewayURL != "" {
		client := whatsapp.NewClient(cfg.WhatsApp.GatewayURL, cfg.WhatsApp.APIKey)
		session = whatsapp.NewSession(client, whatsapp.SessionConfig{
			StatusInterval: cfg.WhatsApp.StatusInterval,
			ReconnectDelay: cfg.WhatsApp.ReconnectDelay,
		}, logger)
		whatsappSender = whatsapp.NewSender(session)
	}

	engine := dispatch.NewEngine(
		campaigns, leads, settings, recorder,
		&email.Factory{Timeout: cfg.Dispatch.VerifyTimeout},
		whatsappSender,
		m,
		dispatch.Config{
			MinSendDelay:  cfg.Dispatch.MinSendDelay,
			MaxSendDelay:  cfg.Dispatch.MaxSendDelay,
			VerifyTimeout: cfg.Dispatch.VerifyTimeout,
		},
		logger,
	)

	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		recorder.Stop()
		database.Close()
		return nil, fmt.Errorf("invalid scheduler timezone: %w", err)
	}

	sched := scheduler.New(engine, campaigns, m, scheduler.Config{
		PollInterval: cfg.Scheduler.PollInterval,
		Location:     loc,
	}, logger)

	var sessionStatus api.SessionStatus
	if session != nil {
		sessionStatus = session
	}

	apiServer := api.NewServer(
		users, leads, templates, campaigns, settings,
		engine, sessionStatus,
		m, cfg.Server.ListenAddr, logger,
	)

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(m, cfg.Metrics.ListenAddr, cfg.Metrics.Path, logger)
	}

	return &App{
		config:        cfg,
		database:      database,
		stats:         recorder,
		session:       session,
		engine:        engine,
		scheduler:     sched,
		apiServer:     apiServer,
		metricsServer: metricsServer,
		metrics:       m,
		logger:        logger,
	}, nil
}

// Run starts all components and waits for shutdown.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("starting leadline",
		"api_addr", a.config.Server.ListenAddr,
		"database", a.config.Database.Path,
		"whatsapp_gateway", a.config.WhatsApp.GatewayURL != "",
	)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if a.session != nil {
		a.session.Start()
		go a.watchSessionGauge(ctx)
	}
	a.scheduler.Start()

	errCh := make(chan error, 2)

	go func() {
		if err := a.apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()

	if a.metricsServer != nil {
		go func() {
			if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.logger.Error("server error", "error", err)
		cancel()
	}

	return a.Shutdown(context.Background())
}

// Shutdown gracefully shuts down all components.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	a.scheduler.Stop()

	if a.session != nil {
		a.session.Stop()
	}

	if err := a.apiServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("api server shutdown error", "error", err)
	}

	if a.metricsServer != nil {
		if err := a.metricsServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("metrics server shutdown error", "error", err)
		}
	}

	if err := a.stats.Stop(); err != nil {
		a.logger.Error("stats storage stop error", "error", err)
	}

	if err := a.database.Close(); err != nil {
		a.logger.Error("database close error", "error", err)
	}

	a.logger.Info("shutdown complete")
	return nil
}

// watchSessionGauge mirrors the session state into the ready gauge.
func (a *App) watchSessionGauge(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if a.session.State() == whatsapp.StateReady {
				a.metrics.WhatsAppSessionReady.Set(1)
			} else {
				a.metrics.WhatsAppSessionReady.Set(0)
			}
		}
	}
}

// setupLogger creates a logger based on configuration.
func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
