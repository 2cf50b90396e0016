// Package channel defines the outbound send capability shared by the
// email and WhatsApp senders, together with their error taxonomy.
package channel

import (
	"context"
	"errors"
	"fmt"

	"github.com/nimeshka/leadline/internal/models"
	"github.com/nimeshka/leadline/internal/render"
)

var (
	// ErrInvalidRecipient means the lead's contact value cannot be used on
	// this channel. Per-recipient failure; the run continues.
	ErrInvalidRecipient = errors.New("invalid recipient contact")

	// ErrNotConnected means the channel's session is not ready to send.
	// Campaign-level precondition failure.
	ErrNotConnected = errors.New("channel is not connected")
)

// SendError wraps a transport failure for a single recipient.
type SendError struct {
	Recipient string
	Err       error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send to %s failed: %v", e.Recipient, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// Sender transmits rendered content to a single lead.
//
// Verify checks the whole-run precondition (transport reachable, session
// ready) and is called once before the first send of a run. Send errors
// are per-recipient and must never abort a run.
type Sender interface {
	Verify(ctx context.Context) error
	Send(ctx context.Context, lead *models.Lead, msg *render.Message, imagePath string) error
}
