package dispatch

import "errors"

// Campaign-level errors. Failures after the campaign was claimed mark it
// failed without any send attempts.
var (
	ErrNotFound             = errors.New("campaign not found")
	ErrNoRecipients         = errors.New("campaign has no sendable recipients")
	ErrChannelNotConfigured = errors.New("channel is not configured")
	ErrChannelNotConnected  = errors.New("channel is not connected")
	ErrAlreadyRunning       = errors.New("campaign run already in progress")
	ErrInvalidState         = errors.New("campaign is not in a runnable state")
	ErrInvalidScheduleTime  = errors.New("scheduled time must be in the future")
)

// Per-recipient failure reasons recorded in the run result.
const (
	ReasonEmptyMessage     = "empty_message"
	ReasonInvalidRecipient = "invalid_recipient"
	ReasonSendError        = "send_error"
)
