// Package email implements the outbound email channel on top of the
// owner's own SMTP provider configuration.
package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"github.com/nimeshka/leadline/internal/channel"
	"github.com/nimeshka/leadline/internal/models"
	"github.com/nimeshka/leadline/internal/render"
)

// Security is the transport security mode used for a connection.
type Security string

const (
	SecurityImplicitTLS Security = "implicit_tls"
	SecurityStartTLS    Security = "starttls"
)

// securityForPort resolves the transport security policy:
// port 465 means implicit TLS, port 587 means STARTTLS, any other port
// follows the configured implicit_tls flag and falls back to STARTTLS.
func securityForPort(port int, implicitTLS bool) Security {
	switch port {
	case 465:
		return SecurityImplicitTLS
	case 587:
		return SecurityStartTLS
	}
	if implicitTLS {
		return SecurityImplicitTLS
	}
	return SecurityStartTLS
}

// Sender sends campaign email through a single owner's SMTP settings.
// Each send is independent; no connection state is kept between calls.
type Sender struct {
	cfg     *models.SMTPSettings
	timeout time.Duration
}

// NewSender creates a sender bound to one owner's SMTP configuration.
func NewSender(cfg *models.SMTPSettings, timeout time.Duration) *Sender {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Sender{cfg: cfg, timeout: timeout}
}

// Factory builds per-owner senders with a shared timeout.
type Factory struct {
	Timeout time.Duration
}

// SenderFor returns a sender for the given owner settings.
func (f *Factory) SenderFor(cfg *models.SMTPSettings) channel.Sender {
	return NewSender(cfg, f.Timeout)
}

// Verify dials the configured transport and issues a NOOP, failing fast
// before the first send of a run rather than mid-loop.
func (s *Sender) Verify(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	c, err := s.connect(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", channel.ErrNotConnected, err)
	}
	defer c.Close()

	if err := c.Noop(); err != nil {
		return fmt.Errorf("%w: %v", channel.ErrNotConnected, err)
	}

	c.Quit()
	return nil
}

// Send delivers one rendered message. The template image is attached when
// the referenced file still exists on disk; a missing file is not an error.
func (s *Sender) Send(ctx context.Context, lead *models.Lead, msg *render.Message, imagePath string) error {
	if !strings.Contains(lead.Email, "@") {
		return channel.ErrInvalidRecipient
	}

	data, err := buildMessage(s.cfg, lead.Email, msg, imagePath)
	if err != nil {
		return &channel.SendError{Recipient: lead.Email, Err: err}
	}

	c, err := s.connect(ctx)
	if err != nil {
		return &channel.SendError{Recipient: lead.Email, Err: err}
	}
	defer c.Close()

	if err := c.SendMail(s.cfg.FromEmail, []string{lead.Email}, strings.NewReader(string(data))); err != nil {
		return &channel.SendError{Recipient: lead.Email, Err: err}
	}

	c.Quit()
	return nil
}

// connect dials the SMTP server applying the port-based security policy
// and authenticates when credentials are configured.
func (s *Sender) connect(ctx context.Context) (*smtp.Client, error) {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	dialer := &net.Dialer{Timeout: s.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connection failed to %s: %w", addr, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	} else {
		conn.SetDeadline(time.Now().Add(s.timeout))
	}

	tlsConfig := &tls.Config{
		ServerName: s.cfg.Host,
		MinVersion: tls.VersionTLS12,
	}

	security := securityForPort(s.cfg.Port, s.cfg.ImplicitTLS)

	var c *smtp.Client
	if security == SecurityImplicitTLS {
		c = smtp.NewClient(tls.Client(conn, tlsConfig))
	} else {
		c = smtp.NewClient(conn)
		if err := c.StartTLS(tlsConfig); err != nil {
			c.Close()
			return nil, fmt.Errorf("STARTTLS failed: %w", err)
		}
	}

	if s.cfg.Username != "" {
		if err := c.Auth(sasl.NewPlainClient("", s.cfg.Username, s.cfg.Password)); err != nil {
			c.Close()
			return nil, fmt.Errorf("AUTH failed: %w", err)
		}
	}

	return c, nil
}
