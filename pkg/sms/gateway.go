package sms

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Gateway abstracts an SMS provider.
type Gateway interface {
	Send(phone string, message string) error
	GetName() string
}

// HTTPGateway sends SMS through a JSON-over-HTTP provider API authenticated
// with a bearer key.
type HTTPGateway struct {
	apiURL   string
	apiKey   string
	senderID string
	client   *http.Client
}

// HTTPConfig holds configuration for the HTTP SMS gateway
type HTTPConfig struct {
	APIURL   string
	APIKey   string
	SenderID string
}

// NewHTTPGateway creates a new HTTP SMS gateway client
func NewHTTPGateway(config HTTPConfig) *HTTPGateway {
	return &HTTPGateway{
		apiURL:   config.APIURL,
		apiKey:   config.APIKey,
		senderID: config.SenderID,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// sendRequest represents the SMS sending request structure
type sendRequest struct {
	To      string `json:"to"`
	From    string `json:"from,omitempty"`
	Message string `json:"message"`
}

// sendResponse represents the SMS sending response structure
type sendResponse struct {
	Status    string `json:"status"`
	MessageID string `json:"message_id"`
	ErrCode   string `json:"err_code"`
	Comment   string `json:"comment"`
}

// Send delivers a single SMS.
func (g *HTTPGateway) Send(phone string, message string) error {
	payload := sendRequest{
		To:      phone,
		From:    g.senderID,
		Message: message,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal SMS request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/messages", g.apiURL), bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create SMS request: %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", g.apiKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send SMS request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read SMS response: %w", err)
	}

	var smsResp sendResponse
	if err := json.Unmarshal(body, &smsResp); err != nil {
		return fmt.Errorf("failed to parse SMS response: %w", err)
	}

	if smsResp.Status != "success" {
		return fmt.Errorf("SMS sending failed: %s (error code: %s)", smsResp.Comment, smsResp.ErrCode)
	}
	return nil
}

// GetName returns the name of this SMS gateway
func (g *HTTPGateway) GetName() string {
	return "HTTP SMS Gateway"
}
