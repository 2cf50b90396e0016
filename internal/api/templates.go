package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nimeshka/leadline/internal/models"
)

// TemplateRequest is the request body for creating and updating templates.
type TemplateRequest struct {
	Name      string         `json:"name"`
	Type      models.Channel `json:"type"`
	Subject   string         `json:"subject"`
	Heading   string         `json:"heading"`
	Message   string         `json:"message"`
	ImagePath string         `json:"image_path"`
}

func (req *TemplateRequest) validate() string {
	if req.Name == "" {
		return "name is required"
	}
	if !req.Type.Valid() {
		return "type must be email or whatsapp"
	}
	if req.Message == "" {
		return "message is required"
	}
	return ""
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req TemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		s.sendError(w, http.StatusBadRequest, msg)
		return
	}

	tmpl := &models.Template{
		OwnerID:   requestUser(r).ID,
		Name:      req.Name,
		Type:      req.Type,
		Subject:   req.Subject,
		Heading:   req.Heading,
		Message:   req.Message,
		ImagePath: req.ImagePath,
	}
	if err := s.templates.Create(tmpl); err != nil {
		s.logger.Error("failed to create template", "error", err)
		s.sendError(w, http.StatusInternalServerError, "failed to create template")
		return
	}

	s.sendJSON(w, http.StatusCreated, tmpl)
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.templates.List(requestUser(r).ID)
	if err != nil {
		s.logger.Error("failed to list templates", "error", err)
		s.sendError(w, http.StatusInternalServerError, "failed to list templates")
		return
	}

	s.sendJSON(w, http.StatusOK, templates)
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	tmpl, err := s.templates.GetByID(chi.URLParam(r, "id"), requestUser(r).ID)
	if err != nil {
		s.logger.Error("failed to get template", "error", err)
		s.sendError(w, http.StatusInternalServerError, "failed to get template")
		return
	}
	if tmpl == nil {
		s.sendError(w, http.StatusNotFound, "template not found")
		return
	}

	s.sendJSON(w, http.StatusOK, tmpl)
}

func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	owner := requestUser(r).ID

	tmpl, err := s.templates.GetByID(chi.URLParam(r, "id"), owner)
	if err != nil {
		s.logger.Error("failed to get template", "error", err)
		s.sendError(w, http.StatusInternalServerError, "failed to get template")
		return
	}
	if tmpl == nil {
		s.sendError(w, http.StatusNotFound, "template not found")
		return
	}

	var req TemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		s.sendError(w, http.StatusBadRequest, msg)
		return
	}

	tmpl.Name = req.Name
	tmpl.Type = req.Type
	tmpl.Subject = req.Subject
	tmpl.Heading = req.Heading
	tmpl.Message = req.Message
	tmpl.ImagePath = req.ImagePath

	if err := s.templates.Update(tmpl); err != nil {
		s.logger.Error("failed to update template", "error", err)
		s.sendError(w, http.StatusInternalServerError, "failed to update template")
		return
	}

	s.sendJSON(w, http.StatusOK, tmpl)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.templates.Delete(chi.URLParam(r, "id"), requestUser(r).ID); err != nil {
		s.logger.Error("failed to delete template", "error", err)
		s.sendError(w, http.StatusInternalServerError, "failed to delete template")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
