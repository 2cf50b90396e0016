package api

import (
	"encoding/json"
	"net/http"

	"github.com/nimeshka/leadline/internal/models"
)

// SMTPSettingsRequest is the request body for PUT /settings/smtp.
type SMTPSettingsRequest struct {
	Host        string `json:"host"`
	Port        int    `json:"port"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	FromEmail   string `json:"from_email"`
	FromName    string `json:"from_name"`
	ImplicitTLS bool   `json:"implicit_tls"`
}

func (s *Server) handleGetSMTPSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.settings.GetSMTP(requestUser(r).ID)
	if err != nil {
		s.logger.Error("failed to get smtp settings", "error", err)
		s.sendError(w, http.StatusInternalServerError, "failed to get smtp settings")
		return
	}
	if settings == nil {
		s.sendError(w, http.StatusNotFound, "smtp settings not configured")
		return
	}

	s.sendJSON(w, http.StatusOK, settings)
}

func (s *Server) handleUpdateSMTPSettings(w http.ResponseWriter, r *http.Request) {
	var req SMTPSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Host == "" {
		s.sendError(w, http.StatusBadRequest, "host is required")
		return
	}
	if req.Port <= 0 || req.Port > 65535 {
		s.sendError(w, http.StatusBadRequest, "port must be between 1 and 65535")
		return
	}
	if req.FromEmail == "" {
		s.sendError(w, http.StatusBadRequest, "from_email is required")
		return
	}

	settings := &models.SMTPSettings{
		OwnerID:     requestUser(r).ID,
		Host:        req.Host,
		Port:        req.Port,
		Username:    req.Username,
		Password:    req.Password,
		FromEmail:   req.FromEmail,
		FromName:    req.FromName,
		ImplicitTLS: req.ImplicitTLS,
	}
	if err := s.settings.UpsertSMTP(settings); err != nil {
		s.logger.Error("failed to store smtp settings", "error", err)
		s.sendError(w, http.StatusInternalServerError, "failed to store smtp settings")
		return
	}

	s.sendJSON(w, http.StatusOK, settings)
}
