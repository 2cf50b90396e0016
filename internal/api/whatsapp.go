package api

import (
	"net/http"

	"github.com/nimeshka/leadline/internal/channel/whatsapp"
)

// WhatsAppStatusResponse is the response for GET /whatsapp/status.
type WhatsAppStatusResponse struct {
	State whatsapp.State `json:"state"`
	JID   string         `json:"jid,omitempty"`
}

// WhatsAppLinkResponse is the response for POST /whatsapp/link.
type WhatsAppLinkResponse struct {
	State  whatsapp.State `json:"state"`
	QRCode string         `json:"qr_code,omitempty"`
}

func (s *Server) handleWhatsAppStatus(w http.ResponseWriter, r *http.Request) {
	if s.session == nil {
		s.sendError(w, http.StatusServiceUnavailable, "whatsapp gateway not configured")
		return
	}

	s.sendJSON(w, http.StatusOK, WhatsAppStatusResponse{
		State: s.session.State(),
		JID:   s.session.JID(),
	})
}

// handleWhatsAppLink starts the session if needed and returns the QR
// code to scan. Once linked, the QR code is empty and state is ready.
func (s *Server) handleWhatsAppLink(w http.ResponseWriter, r *http.Request) {
	if s.session == nil {
		s.sendError(w, http.StatusServiceUnavailable, "whatsapp gateway not configured")
		return
	}

	qr, err := s.session.QR(r.Context())
	if err != nil {
		s.logger.Error("failed to start whatsapp session", "error", err)
		s.sendError(w, http.StatusBadGateway, "failed to start whatsapp session")
		return
	}

	s.sendJSON(w, http.StatusOK, WhatsAppLinkResponse{
		State:  s.session.State(),
		QRCode: qr,
	})
}
