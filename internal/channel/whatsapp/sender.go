package whatsapp

import (
	"context"
	"os"
	"regexp"

	"github.com/nimeshka/leadline/internal/channel"
	"github.com/nimeshka/leadline/internal/models"
	"github.com/nimeshka/leadline/internal/render"
)

// jidPattern is the destination address format accepted by the chat
// network: normalized digits followed by the user suffix.
var jidPattern = regexp.MustCompile(`^\d+@c\.us$`)

// Sender sends campaign messages through the shared gateway session.
type Sender struct {
	session *Session
}

// NewSender creates a sender bound to the process-wide session.
func NewSender(session *Session) *Sender {
	return &Sender{session: session}
}

// Verify requires a ready session before a run starts. A mid-run
// disconnect surfaces as per-recipient send errors instead; the run
// never attempts session recovery itself.
func (s *Sender) Verify(ctx context.Context) error {
	if !s.session.Ready() {
		return channel.ErrNotConnected
	}
	return nil
}

// Send normalizes the lead's phone into a chat JID and transmits the
// message, as image+caption when the attachment still exists on disk.
// A missing attachment file is not an error: the message goes as text.
func (s *Sender) Send(ctx context.Context, lead *models.Lead, msg *render.Message, imagePath string) error {
	number, err := NormalizePhone(lead.Phone, lead.Country)
	if err != nil {
		return err
	}

	jid := number + "@c.us"
	if !jidPattern.MatchString(jid) {
		return channel.ErrInvalidRecipient
	}

	if imagePath != "" {
		if _, err := os.Stat(imagePath); err == nil {
			if err := s.session.client.SendImage(ctx, jid, msg.Body, imagePath); err != nil {
				return &channel.SendError{Recipient: jid, Err: err}
			}
			return nil
		}
	}

	if err := s.session.client.SendText(ctx, jid, msg.Body); err != nil {
		return &channel.SendError{Recipient: jid, Err: err}
	}
	return nil
}
