// Package render resolves per-lead message content from a campaign's
// template snapshot. Rendering is pure: no I/O, no clock, no randomness.
package render

import (
	"errors"
	"regexp"
	"strings"

	"github.com/nimeshka/leadline/internal/models"
)

// ErrEmptyMessage indicates the rendered body was empty or whitespace-only.
// This is a per-recipient failure, never fatal to a campaign run.
var ErrEmptyMessage = errors.New("rendered message is empty")

// Message is the final per-lead content handed to a channel sender.
type Message struct {
	Subject string
	Body    string
}

// placeholder tokens supported in subject and body
var placeholderPattern = regexp.MustCompile(`\{(businessName|phone|email|address)\}`)

// Render substitutes placeholder tokens with the lead's fields, strips
// control characters from the body and trims surrounding whitespace.
func Render(tmpl *models.TemplateSnapshot, lead *models.Lead) (*Message, error) {
	vars := map[string]string{
		"businessName": lead.BusinessName,
		"phone":        lead.Phone,
		"email":        lead.Email,
		"address":      lead.Address,
	}

	subject := strings.TrimSpace(substitute(tmpl.Subject, vars))
	body := substitute(tmpl.Message, vars)

	// The chat channel rejects or mishandles NUL and C0/C1 control bytes.
	body = stripControl(body)
	body = strings.TrimSpace(body)

	if body == "" {
		return nil, ErrEmptyMessage
	}

	return &Message{Subject: subject, Body: body}, nil
}

// substitute replaces {token} patterns with lead values, defaulting to
// the empty string for unknown tokens.
func substitute(s string, vars map[string]string) string {
	if s == "" {
		return s
	}

	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := match[1 : len(match)-1]
		return vars[name]
	})
}

// stripControl removes NUL and C0/C1 control characters
// (0x00-0x08, 0x0B-0x0C, 0x0E-0x1F, 0x7F-0x9F). Tab, LF and CR survive.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r <= 0x08,
			r == 0x0B, r == 0x0C,
			r >= 0x0E && r <= 0x1F,
			r >= 0x7F && r <= 0x9F:
			return -1
		}
		return r
	}, s)
}
