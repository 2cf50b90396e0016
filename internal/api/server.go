// Package api is the HTTP API: lead, template and campaign management
// plus channel settings and the WhatsApp link flow.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nimeshka/leadline/internal/channel/whatsapp"
	"github.com/nimeshka/leadline/internal/dispatch"
	"github.com/nimeshka/leadline/internal/metrics"
	"github.com/nimeshka/leadline/internal/models"
	"github.com/nimeshka/leadline/internal/repository"
)

// Dispatcher runs and schedules campaigns.
type Dispatcher interface {
	StartRun(ctx context.Context, campaignID, ownerID string) (*dispatch.RunResult, error)
	ScheduleRun(campaignID, ownerID string, at time.Time) error
}

// UserStore resolves API keys to accounts.
type UserStore interface {
	GetByAPIKey(key string) (*models.User, error)
}

// SessionStatus is the read side of the WhatsApp session used by the
// status and link endpoints.
type SessionStatus interface {
	State() whatsapp.State
	JID() string
	QR(ctx context.Context) (string, error)
}

// Server is the HTTP API server.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server

	users      UserStore
	leads      *repository.LeadRepository
	templates  *repository.TemplateRepository
	campaigns  *repository.CampaignRepository
	settings   *repository.SettingsRepository
	dispatcher Dispatcher
	session    SessionStatus

	metrics    *metrics.Metrics
	logger     *slog.Logger
	listenAddr string
}

// NewServer creates the API server. session may be nil when no WhatsApp
// gateway is configured.
func NewServer(
	users UserStore,
	leads *repository.LeadRepository,
	templates *repository.TemplateRepository,
	campaigns *repository.CampaignRepository,
	settings *repository.SettingsRepository,
	dispatcher Dispatcher,
	session SessionStatus,
	m *metrics.Metrics,
	listenAddr string,
	logger *slog.Logger,
) *Server {
	s := &Server{
		router:     chi.NewRouter(),
		users:      users,
		leads:      leads,
		templates:  templates,
		campaigns:  campaigns,
		settings:   settings,
		dispatcher: dispatcher,
		session:    session,
		metrics:    m,
		logger:     logger.With("component", "api"),
		listenAddr: listenAddr,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.metricsMiddleware)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Route("/leads", func(r chi.Router) {
			r.Post("/", s.handleCreateLead)
			r.Get("/", s.handleListLeads)
			r.Get("/{id}", s.handleGetLead)
			r.Put("/{id}", s.handleUpdateLead)
			r.Delete("/{id}", s.handleDeleteLead)
		})

		r.Route("/templates", func(r chi.Router) {
			r.Post("/", s.handleCreateTemplate)
			r.Get("/", s.handleListTemplates)
			r.Get("/{id}", s.handleGetTemplate)
			r.Put("/{id}", s.handleUpdateTemplate)
			r.Delete("/{id}", s.handleDeleteTemplate)
		})

		r.Route("/campaigns", func(r chi.Router) {
			r.Post("/", s.handleCreateCampaign)
			r.Get("/", s.handleListCampaigns)
			r.Get("/{id}", s.handleGetCampaign)
			r.Delete("/{id}", s.handleDeleteCampaign)
			r.Post("/{id}/send", s.handleSendCampaign)
			r.Post("/{id}/schedule", s.handleScheduleCampaign)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/smtp", s.handleGetSMTPSettings)
			r.Put("/smtp", s.handleUpdateSMTPSettings)
		})

		r.Route("/whatsapp", func(r chi.Router) {
			r.Get("/status", s.handleWhatsAppStatus)
			r.Post("/link", s.handleWhatsAppLink)
		})
	})
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:         s.listenAddr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP API server", "addr", s.listenAddr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP API server")
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
