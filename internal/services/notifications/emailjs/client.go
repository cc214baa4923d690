// Package emailjs sends notification emails through the EmailJS REST API.
package emailjs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
)

// DefaultEndpoint is the EmailJS send endpoint.
const DefaultEndpoint = "https://api.emailjs.com/api/v1.0/email/send"

// Message is one templated email. Recipients are joined into the template's
// to_email parameter.
type Message struct {
	Recipients []string
	Title      string
	Details    string
}

// Sender delivers one message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Config identifies the EmailJS service, template, and account key.
type Config struct {
	Endpoint   string
	ServiceID  string
	TemplateID string
	PublicKey  string
}

// Configured reports whether every credential is present.
func (c Config) Configured() bool {
	return strings.TrimSpace(c.ServiceID) != "" &&
		strings.TrimSpace(c.TemplateID) != "" &&
		strings.TrimSpace(c.PublicKey) != ""
}

// StatusError reports a non-2xx EmailJS response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("emailjs returned %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the failure may succeed on a later attempt.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client posts messages to EmailJS.
type Client struct {
	cfg    Config
	client *http.Client
}

// NewClient creates an EmailJS client.
func NewClient(cfg Config, client *http.Client) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	if strings.TrimSpace(cfg.Endpoint) == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	return &Client{cfg: cfg, client: client}
}

type sendRequest struct {
	ServiceID      string         `json:"service_id"`
	TemplateID     string         `json:"template_id"`
	UserID         string         `json:"user_id"`
	TemplateParams templateParams `json:"template_params"`
}

type templateParams struct {
	ToEmail    string `json:"to_email"`
	EventTitle string `json:"event_title"`
	Details    string `json:"details"`
}

// Send posts one message.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if !c.cfg.Configured() {
		return fmt.Errorf("emailjs is not configured")
	}
	if len(msg.Recipients) == 0 {
		return fmt.Errorf("at least one recipient is required")
	}
	body, err := json.Marshal(sendRequest{
		ServiceID:  c.cfg.ServiceID,
		TemplateID: c.cfg.TemplateID,
		UserID:     c.cfg.PublicKey,
		TemplateParams: templateParams{
			ToEmail:    strings.Join(msg.Recipients, ","),
			EventTitle: msg.Title,
			Details:    msg.Details,
		},
	})
	if err != nil {
		return fmt.Errorf("encode emailjs request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build emailjs request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("emailjs request: %w", err)
	}
	defer resp.Body.Close()

	text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(text))}
	}
	return nil
}

// LogSender writes messages to the process log instead of sending them.
type LogSender struct {
	Logf func(format string, args ...any)
}

// Send logs one message.
func (s LogSender) Send(_ context.Context, msg Message) error {
	logf := s.Logf
	if logf == nil {
		logf = log.Printf
	}
	logf("notification (dry run) to=%s title=%q details=%q", strings.Join(msg.Recipients, ","), msg.Title, msg.Details)
	return nil
}
