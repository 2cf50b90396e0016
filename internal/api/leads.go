package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nimeshka/leadline/internal/models"
)

// LeadRequest is the request body for creating and updating leads.
type LeadRequest struct {
	BusinessName string `json:"business_name"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	Address      string `json:"address"`
	Country      string `json:"country"`
}

func (s *Server) handleCreateLead(w http.ResponseWriter, r *http.Request) {
	var req LeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BusinessName == "" {
		s.sendError(w, http.StatusBadRequest, "business_name is required")
		return
	}

	lead := &models.Lead{
		OwnerID:      requestUser(r).ID,
		BusinessName: req.BusinessName,
		Phone:        req.Phone,
		Email:        req.Email,
		Address:      req.Address,
		Country:      req.Country,
	}
	if err := s.leads.Create(lead); err != nil {
		s.logger.Error("failed to create lead", "error", err)
		s.sendError(w, http.StatusInternalServerError, "failed to create lead")
		return
	}

	s.sendJSON(w, http.StatusCreated, lead)
}

func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	leads, err := s.leads.List(requestUser(r).ID)
	if err != nil {
		s.logger.Error("failed to list leads", "error", err)
		s.sendError(w, http.StatusInternalServerError, "failed to list leads")
		return
	}

	s.sendJSON(w, http.StatusOK, leads)
}

func (s *Server) handleGetLead(w http.ResponseWriter, r *http.Request) {
	lead, err := s.leads.GetByID(chi.URLParam(r, "id"), requestUser(r).ID)
	if err != nil {
		s.logger.Error("failed to get lead", "error", err)
		s.sendError(w, http.StatusInternalServerError, "failed to get lead")
		return
	}
	if lead == nil {
		s.sendError(w, http.StatusNotFound, "lead not found")
		return
	}

	s.sendJSON(w, http.StatusOK, lead)
}

func (s *Server) handleUpdateLead(w http.ResponseWriter, r *http.Request) {
	owner := requestUser(r).ID

	lead, err := s.leads.GetByID(chi.URLParam(r, "id"), owner)
	if err != nil {
		s.logger.Error("failed to get lead", "error", err)
		s.sendError(w, http.StatusInternalServerError, "failed to get lead")
		return
	}
	if lead == nil {
		s.sendError(w, http.StatusNotFound, "lead not found")
		return
	}

	var req LeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BusinessName == "" {
		s.sendError(w, http.StatusBadRequest, "business_name is required")
		return
	}

	lead.BusinessName = req.BusinessName
	lead.Phone = req.Phone
	lead.Email = req.Email
	lead.Address = req.Address
	lead.Country = req.Country

	if err := s.leads.Update(lead); err != nil {
		s.logger.Error("failed to update lead", "error", err)
		s.sendError(w, http.StatusInternalServerError, "failed to update lead")
		return
	}

	s.sendJSON(w, http.StatusOK, lead)
}

func (s *Server) handleDeleteLead(w http.ResponseWriter, r *http.Request) {
	if err := s.leads.Delete(chi.URLParam(r, "id"), requestUser(r).ID); err != nil {
		s.logger.Error("failed to delete lead", "error", err)
		s.sendError(w, http.StatusInternalServerError, "failed to delete lead")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
