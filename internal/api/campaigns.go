package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nimeshka/leadline/internal/dispatch"
	"github.com/nimeshka/leadline/internal/models"
)

// CampaignRequest is the request body for creating a campaign. The
// template content is snapshotted into the campaign, so later template
// edits never change what an existing campaign sends.
type CampaignRequest struct {
	Name         string         `json:"name"`
	Channel      models.Channel `json:"channel"`
	TemplateID   string         `json:"template_id"`
	RecipientIDs []string       `json:"recipient_ids"`
}

// ScheduleRequest is the request body for scheduling a campaign.
type ScheduleRequest struct {
	ScheduledAt time.Time `json:"scheduled_at"`
}

func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	owner := requestUser(r).ID

	var req CampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		s.sendError(w, http.StatusBadRequest, "name is required")
		return
	}
	if !req.Channel.Valid() {
		s.sendError(w, http.StatusBadRequest, "channel must be email or whatsapp")
		return
	}
	if len(req.RecipientIDs) == 0 {
		s.sendError(w, http.StatusBadRequest, "recipient_ids is required")
		return
	}

	tmpl, err := s.templates.GetByID(req.TemplateID, owner)
	if err != nil {
		s.logger.Error("failed to get template", "error", err)
		s.sendError(w, http.StatusInternalServerError, "failed to get template")
		return
	}
	if tmpl == nil {
		s.sendError(w, http.StatusBadRequest, "template not found")
		return
	}
	if tmpl.Type != req.Channel {
		s.sendError(w, http.StatusBadRequest, "template type does not match campaign channel")
		return
	}

	// Unknown recipient IDs are dropped here rather than failing the
	// run later.
	resolved, err := s.leads.GetByIDs(req.RecipientIDs, owner)
	if err != nil {
		s.logger.Error("failed to resolve recipients", "error", err)
		s.sendError(w, http.StatusInternalServerError, "failed to resolve recipients")
		return
	}
	if len(resolved) == 0 {
		s.sendError(w, http.StatusBadRequest, "no recipient_ids resolve to saved leads")
		return
	}
	recipientIDs := make([]string, len(resolved))
	for i, l := range resolved {
		recipientIDs[i] = l.ID
	}

	campaign := &models.Campaign{
		OwnerID:      owner,
		Name:         req.Name,
		Channel:      req.Channel,
		Template:     tmpl.Snapshot(),
		RecipientIDs: recipientIDs,
	}
	if err := s.campaigns.Create(campaign); err != nil {
		s.logger.Error("failed to create campaign", "error", err)
		s.sendError(w, http.StatusInternalServerError, "failed to create campaign")
		return
	}

	s.sendJSON(w, http.StatusCreated, campaign)
}

func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := s.campaigns.List(requestUser(r).ID)
	if err != nil {
		s.logger.Error("failed to list campaigns", "error", err)
		s.sendError(w, http.StatusInternalServerError, "failed to list campaigns")
		return
	}

	s.sendJSON(w, http.StatusOK, campaigns)
}

func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, err := s.campaigns.GetByID(chi.URLParam(r, "id"), requestUser(r).ID)
	if err != nil {
		s.logger.Error("failed to get campaign", "error", err)
		s.sendError(w, http.StatusInternalServerError, "failed to get campaign")
		return
	}
	if campaign == nil {
		s.sendError(w, http.StatusNotFound, "campaign not found")
		return
	}

	s.sendJSON(w, http.StatusOK, campaign)
}

func (s *Server) handleDeleteCampaign(w http.ResponseWriter, r *http.Request) {
	if err := s.campaigns.Delete(chi.URLParam(r, "id"), requestUser(r).ID); err != nil {
		s.sendError(w, http.StatusConflict, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSendCampaign(w http.ResponseWriter, r *http.Request) {
	// The run holds this connection through its inter-send pauses, so the
	// server-wide write deadline would expire before the result could be
	// written back.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		s.logger.Debug("failed to clear write deadline", "error", err)
	}

	result, err := s.dispatcher.StartRun(r.Context(), chi.URLParam(r, "id"), requestUser(r).ID)
	if err != nil {
		s.sendDispatchError(w, err)
		return
	}

	// Partial success is a normal outcome: the result carries both
	// counts and per-recipient errors.
	s.sendJSON(w, http.StatusOK, result)
}

func (s *Server) handleScheduleCampaign(w http.ResponseWriter, r *http.Request) {
	var req ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ScheduledAt.IsZero() {
		s.sendError(w, http.StatusBadRequest, "scheduled_at is required")
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.dispatcher.ScheduleRun(id, requestUser(r).ID, req.ScheduledAt); err != nil {
		s.sendDispatchError(w, err)
		return
	}

	campaign, err := s.campaigns.GetByID(id, requestUser(r).ID)
	if err != nil || campaign == nil {
		s.sendJSON(w, http.StatusOK, map[string]string{"status": "scheduled"})
		return
	}
	s.sendJSON(w, http.StatusOK, campaign)
}

// sendDispatchError maps dispatch errors onto HTTP statuses.
func (s *Server) sendDispatchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dispatch.ErrNotFound):
		s.sendError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, dispatch.ErrAlreadyRunning),
		errors.Is(err, dispatch.ErrInvalidState):
		s.sendError(w, http.StatusConflict, err.Error())
	case errors.Is(err, dispatch.ErrNoRecipients),
		errors.Is(err, dispatch.ErrChannelNotConfigured),
		errors.Is(err, dispatch.ErrChannelNotConnected),
		errors.Is(err, dispatch.ErrInvalidScheduleTime):
		s.sendError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.logger.Error("campaign dispatch failed", "error", err)
		s.sendError(w, http.StatusInternalServerError, "campaign dispatch failed")
	}
}
