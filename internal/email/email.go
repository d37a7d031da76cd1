// Package email sends transactional template mail through a Brevo-compatible API.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"leasing-site-api/internal/config"
)

var ErrDisabled = errors.New("email not configured")

type Address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type Message struct {
	To         []Address      `json:"to"`
	TemplateID int64          `json:"templateId"`
	Params     map[string]any `json:"params,omitempty"`
	ReplyTo    *Address       `json:"replyTo,omitempty"`
}

type Client struct {
	apiKey  string
	baseURL string
	sender  Address
	http    *http.Client
}

func New(cfg config.Email, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		sender:  Address{Email: cfg.SenderEmail, Name: cfg.SenderName},
		http:    client,
	}
}

func (c *Client) Enabled() bool { return c.apiKey != "" }

type sendRequest struct {
	Sender Address `json:"sender"`
	Message
}

// Send posts one templated message and returns the provider's message id.
func (c *Client) Send(ctx context.Context, msg Message) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}
	if len(msg.To) == 0 {
		return "", errors.New("email: no recipients")
	}

	body, err := json.Marshal(sendRequest{Sender: c.sender, Message: msg})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v3/smtp/email", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("email send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("email send: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	var out struct {
		MessageID string `json:"messageId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("email decode: %w", err)
	}
	return out.MessageID, nil
}
