package whatsapp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/nimeshka/leadline/internal/channel"
	"github.com/nimeshka/leadline/internal/models"
	"github.com/nimeshka/leadline/internal/render"
)

func TestSenderVerifyRequiresReady(t *testing.T) {
	gateway := &fakeGateway{}
	gateway.setStatus(StatusResponse{QRCode: "qr-data"})
	session := newTestSession(t, gateway)
	sender := NewSender(session)

	err := sender.Verify(context.Background())
	if !errors.Is(err, channel.ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
}

func TestSenderSendNormalizesRecipient(t *testing.T) {
	gateway := &fakeGateway{}
	gateway.setStatus(StatusResponse{Connected: true, LoggedIn: true, JID: "94770000000@c.us"})
	session := newTestSession(t, gateway)
	if err := session.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	sender := NewSender(session)

	lead := &models.Lead{ID: "lead-1", Phone: "077-123 4567", Country: "Sri Lanka"}
	msg := &render.Message{Body: "hello"}

	if err := sender.Send(context.Background(), lead, msg, ""); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	gateway.mu.Lock()
	defer gateway.mu.Unlock()
	if len(gateway.sentTexts) != 1 || gateway.sentTexts[0] != "94771234567@c.us" {
		t.Errorf("unexpected destinations: %v", gateway.sentTexts)
	}
}

func TestSenderSendWithImage(t *testing.T) {
	gateway := &fakeGateway{}
	gateway.setStatus(StatusResponse{Connected: true, LoggedIn: true, JID: "94770000000@c.us"})
	session := newTestSession(t, gateway)
	if err := session.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	sender := NewSender(session)

	imagePath := filepath.Join(t.TempDir(), "offer.png")
	if err := os.WriteFile(imagePath, []byte("fake-png-bytes"), 0644); err != nil {
		t.Fatalf("failed to write image: %v", err)
	}

	lead := &models.Lead{ID: "lead-1", Phone: "0771234567", Country: "Sri Lanka"}
	msg := &render.Message{Body: "hello"}

	if err := sender.Send(context.Background(), lead, msg, imagePath); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	gateway.mu.Lock()
	defer gateway.mu.Unlock()
	if len(gateway.sentImages) != 1 || gateway.sentImages[0] != "94771234567@c.us" {
		t.Errorf("expected one image send, got %v", gateway.sentImages)
	}
	if len(gateway.sentTexts) != 0 {
		t.Errorf("image+caption goes as one unit, got text sends %v", gateway.sentTexts)
	}
}

func TestSenderSendMissingImageFallsBackToText(t *testing.T) {
	gateway := &fakeGateway{}
	gateway.setStatus(StatusResponse{Connected: true, LoggedIn: true, JID: "94770000000@c.us"})
	session := newTestSession(t, gateway)
	if err := session.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	sender := NewSender(session)

	lead := &models.Lead{ID: "lead-1", Phone: "0771234567", Country: "Sri Lanka"}
	msg := &render.Message{Body: "hello"}

	if err := sender.Send(context.Background(), lead, msg, "/nonexistent/offer.png"); err != nil {
		t.Fatalf("Send with missing image must fall back to text, got %v", err)
	}

	gateway.mu.Lock()
	defer gateway.mu.Unlock()
	if len(gateway.sentTexts) != 1 || gateway.sentTexts[0] != "94771234567@c.us" {
		t.Errorf("expected one text send, got %v", gateway.sentTexts)
	}
	if len(gateway.sentImages) != 0 {
		t.Errorf("missing image must not reach the image endpoint, got %v", gateway.sentImages)
	}
}

func TestSenderSendInvalidPhone(t *testing.T) {
	gateway := &fakeGateway{}
	gateway.setStatus(StatusResponse{Connected: true, LoggedIn: true})
	session := newTestSession(t, gateway)
	sender := NewSender(session)

	lead := &models.Lead{ID: "lead-1", Phone: "N/A", Country: "Sri Lanka"}
	msg := &render.Message{Body: "hello"}

	err := sender.Send(context.Background(), lead, msg, "")
	if !errors.Is(err, channel.ErrInvalidRecipient) {
		t.Errorf("expected ErrInvalidRecipient, got %v", err)
	}

	gateway.mu.Lock()
	defer gateway.mu.Unlock()
	if len(gateway.sentTexts) != 0 {
		t.Errorf("invalid recipient must not reach the gateway, got %v", gateway.sentTexts)
	}
}
