// Package whatsapp implements the WhatsApp channel: a process-wide
// session manager over a WhatsApp Web gateway plus a sender bound to it.
package whatsapp

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// State is the lifecycle state of the gateway session.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitializing  State = "initializing"
	StateAwaitingLink  State = "awaiting_link"
	StateReady         State = "ready"
	StateDisconnected  State = "disconnected"
)

// SessionConfig holds session manager settings.
type SessionConfig struct {
	StatusInterval time.Duration
	ReconnectDelay time.Duration
}

// Session owns the single long-lived gateway session. Initialization is
// lazy and idempotent; a monitor loop reconciles local state with the
// gateway and re-initializes after a disconnect.
type Session struct {
	client *Client
	logger *slog.Logger

	statusInterval time.Duration
	reconnectDelay time.Duration

	mu             sync.Mutex
	state          State
	qr             string
	jid            string
	lastConnected  bool
	disconnectedAt time.Time
	initDone       chan struct{}
	initErr        error

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSession creates a session manager. The session is not started until
// the first Initialize, QR or Start call.
func NewSession(client *Client, cfg SessionConfig, logger *slog.Logger) *Session {
	if cfg.StatusInterval == 0 {
		cfg.StatusInterval = 10 * time.Second
	}
	if cfg.ReconnectDelay == 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Session{
		client:         client,
		logger:         logger.With("component", "whatsapp_session"),
		statusInterval: cfg.StatusInterval,
		reconnectDelay: cfg.ReconnectDelay,
		state:          StateUninitialized,
		ctx:            ctx,
		cancel:         cancel,
	}
}

// Start starts the background monitor loop.
func (s *Session) Start() {
	s.wg.Add(1)
	go s.monitor()
	s.logger.Info("session monitor started", "status_interval", s.statusInterval)
}

// Stop stops the monitor loop.
func (s *Session) Stop() {
	s.cancel()
	s.wg.Wait()
	s.logger.Info("session monitor stopped")
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// JID returns the linked account identity, if any.
func (s *Session) JID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jid
}

// QR returns the current link code, triggering initialization when the
// session has not been opened yet.
func (s *Session) QR(ctx context.Context) (string, error) {
	if err := s.Initialize(ctx); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.qr, nil
}

// Initialize opens the gateway session. Safe to call concurrently: a
// later caller waits for the in-flight attempt and shares its outcome,
// and an already-linked session is a no-op.
func (s *Session) Initialize(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateAwaitingLink, StateReady:
		s.mu.Unlock()
		return nil
	case StateInitializing:
		done := s.initDone
		s.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
		s.mu.Lock()
		err := s.initErr
		s.mu.Unlock()
		return err
	}
	s.state = StateInitializing
	done := make(chan struct{})
	s.initDone = done
	s.mu.Unlock()

	status, err := s.client.StartSession(ctx)
	if err != nil {
		s.mu.Lock()
		s.initErr = err
		s.state = StateDisconnected
		s.disconnectedAt = time.Now()
		s.mu.Unlock()
		close(done)
		return err
	}

	s.apply(status)
	s.mu.Lock()
	s.initErr = nil
	s.mu.Unlock()
	close(done)
	return nil
}

// Ready reports whether the session can send. The state flag is the
// primary signal; when it is stale but the gateway last reported a live
// identity, the flag is corrected instead of refusing the run.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateReady {
		return true
	}
	if s.lastConnected && s.jid != "" {
		s.logger.Warn("session state flag stale, reconciling to ready", "state", s.state, "jid", s.jid)
		s.state = StateReady
		return true
	}
	return false
}

func (s *Session) monitor() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.poll()
		}
	}
}

// poll refreshes local state from the gateway and schedules
// re-initialization after a disconnect.
func (s *Session) poll() {
	s.mu.Lock()
	state := s.state
	downSince := s.disconnectedAt
	s.mu.Unlock()

	if state == StateUninitialized {
		return
	}

	if state == StateDisconnected {
		if time.Since(downSince) >= s.reconnectDelay {
			s.logger.Info("re-initializing session after disconnect")
			s.mu.Lock()
			s.state = StateUninitialized
			s.mu.Unlock()
			if err := s.Initialize(s.ctx); err != nil {
				s.logger.Warn("session re-initialization failed", "error", err)
			}
		}
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.statusInterval)
	status, err := s.client.Status(ctx)
	cancel()
	if err != nil {
		s.logger.Warn("session status check failed", "error", err)
		s.markDisconnected()
		return
	}

	s.apply(status)
}

// apply folds a gateway status into the local state machine.
func (s *Session) apply(status *StatusResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastConnected = status.Connected && status.LoggedIn
	if status.JID != "" {
		s.jid = status.JID
	}

	prev := s.state
	switch {
	case status.Connected && status.LoggedIn:
		s.state = StateReady
		s.qr = ""
	case status.QRCode != "":
		s.state = StateAwaitingLink
		s.qr = status.QRCode
	default:
		if prev == StateReady {
			s.state = StateDisconnected
			s.disconnectedAt = time.Now()
		}
	}

	if s.state != prev {
		s.logger.Info("session state changed", "from", prev, "to", s.state)
	}
}

func (s *Session) markDisconnected() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastConnected = false
	if s.state == StateReady || s.state == StateAwaitingLink || s.state == StateInitializing {
		s.logger.Warn("session disconnected", "previous_state", s.state)
		s.state = StateDisconnected
		s.disconnectedAt = time.Now()
	}
}
