// Package domain turns outbox events into notification deliveries.
package domain

import (
	"context"
	"fmt"
	"strings"

	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/storage"
	"github.com/fighterspassapp/dp-pass-app/internal/services/notifications/emailjs"
	"github.com/fighterspassapp/dp-pass-app/internal/services/notifications/render"
)

// EmailHandler renders an outbox event and emails it to the administrators.
type EmailHandler struct {
	sender     emailjs.Sender
	recipients []string
	loc        render.Localizer
}

// NewEmailHandler creates an email handler. Blank recipients are dropped.
func NewEmailHandler(sender emailjs.Sender, recipients []string, loc render.Localizer) *EmailHandler {
	cleaned := make([]string, 0, len(recipients))
	for _, recipient := range recipients {
		if recipient = strings.TrimSpace(recipient); recipient != "" {
			cleaned = append(cleaned, recipient)
		}
	}
	return &EmailHandler{sender: sender, recipients: cleaned, loc: loc}
}

// Handle delivers one event. Rendering failures and configuration problems
// are permanent.
func (h *EmailHandler) Handle(ctx context.Context, event storage.OutboxEvent) error {
	if h == nil || h.sender == nil {
		return Permanent(fmt.Errorf("email sender is not configured"))
	}
	if len(h.recipients) == 0 {
		return Permanent(fmt.Errorf("no notification recipients configured"))
	}
	out, err := render.Render(h.loc, render.Input{
		EventType:   event.EventType,
		PayloadJSON: event.PayloadJSON,
	})
	if err != nil {
		return Permanent(err)
	}
	return h.sender.Send(ctx, emailjs.Message{
		Recipients: h.recipients,
		Title:      out.Title,
		Details:    out.Details,
	})
}
