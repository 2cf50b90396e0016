package whatsapp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Client talks to a WhatsApp Web gateway over its HTTP API. One gateway
// session serves the whole process.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a gateway API client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// StatusResponse describes the gateway session state.
type StatusResponse struct {
	Connected bool   `json:"connected"`
	LoggedIn  bool   `json:"logged_in"`
	JID       string `json:"jid,omitempty"`
	QRCode    string `json:"qr_code,omitempty"`
}

// ErrorResponse is the gateway error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// textRequest is the body for POST /api/v1/messages/text
type textRequest struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

// imageRequest is the body for POST /api/v1/messages/image
type imageRequest struct {
	To      string `json:"to"`
	Caption string `json:"caption,omitempty"`
	Image   string `json:"image"` // base64
}

// request performs an HTTP request to the gateway API
func (c *Client) request(ctx context.Context, method, path string, body any, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
			return fmt.Errorf("HTTP %d", resp.StatusCode)
		}
		return fmt.Errorf("gateway error: %s", errResp.Error)
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}

// Status reports the current gateway session state.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.request(ctx, http.MethodGet, "/api/v1/session/status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StartSession asks the gateway to open a session. When the device is not
// linked yet the response carries a QR code to scan.
func (c *Client) StartSession(ctx context.Context) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.request(ctx, http.MethodPost, "/api/v1/session/start", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SendText sends a plain text message to a chat JID.
func (c *Client) SendText(ctx context.Context, to, text string) error {
	return c.request(ctx, http.MethodPost, "/api/v1/messages/text", &textRequest{To: to, Text: text}, nil)
}

// SendImage sends an image with a caption as one unit.
func (c *Client) SendImage(ctx context.Context, to, caption, imagePath string) error {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	req := &imageRequest{
		To:      to,
		Caption: caption,
		Image:   base64.StdEncoding.EncodeToString(data),
	}
	return c.request(ctx, http.MethodPost, "/api/v1/messages/image", req, nil)
}
