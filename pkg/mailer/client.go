package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/oakmart/storefront-backend/pkg/logger"
)

// Client is an HTTP client for a transactional email API
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new email client with the given configuration
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// From returns the configured sender in "Name <address>" form
func (c *Client) From() string {
	if c.config.FromName == "" {
		return c.config.FromAddress
	}
	return fmt.Sprintf("%s <%s>", c.config.FromName, c.config.FromAddress)
}

// EncodeAttachment base64-encodes raw file bytes for the wire format
func EncodeAttachment(filename string, content []byte) Attachment {
	return Attachment{
		Filename: filename,
		Content:  base64.StdEncoding.EncodeToString(content),
	}
}

// Send delivers a single email through the API
func (c *Client) Send(ctx context.Context, req SendRequest) (*SendResponse, error) {
	if len(req.To) == 0 || req.Subject == "" {
		return nil, ErrInvalidRequest
	}
	if req.From == "" {
		req.From = c.From()
	}

	body, err := c.doRequest(ctx, "emails", req)
	if err != nil {
		return nil, err
	}

	var sendResp SendResponse
	if err := json.Unmarshal(body, &sendResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal send response: %w", err)
	}

	logger.Debug("Email accepted by mail API", map[string]interface{}{
		"message_id": sendResp.ID,
		"recipients": len(req.To),
	})
	return &sendResp, nil
}

// doRequest performs an HTTP request against the email API
func (c *Client) doRequest(ctx context.Context, endpoint string, payload interface{}) ([]byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	url := fmt.Sprintf("%s/%s", c.config.BaseURL, endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case resp.StatusCode >= 400:
		var apiErr apiError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("%w: %s", ErrSendFailed, apiErr.Message)
		}
		return nil, fmt.Errorf("%w: status %d", ErrSendFailed, resp.StatusCode)
	}

	return body, nil
}
