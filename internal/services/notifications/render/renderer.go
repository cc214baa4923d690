// Package render turns queued notification events into localized email copy.
package render

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/account"
	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/domain"
	"golang.org/x/text/message"
)

const (
	// EventRequestSubmitted is emitted when a member queues an announced request.
	EventRequestSubmitted = "ledger.request_submitted"
	// EventWeeklyDigest summarizes pass transfers awaiting processing.
	EventWeeklyDigest = "ledger.weekly_digest"
)

// Input is one stored outbox event.
type Input struct {
	EventType   string
	PayloadJSON string
}

// Output is the email template content for one event.
type Output struct {
	Title   string
	Details string
}

// DigestPayload is the payload of EventWeeklyDigest.
type DigestPayload struct {
	Kind   account.ResourceKind `json:"request_kind"`
	Count  int                  `json:"count"`
	Period string               `json:"period"`
}

// Localizer is the minimal message-printer contract required by the renderer.
type Localizer interface {
	Sprintf(key message.Reference, args ...any) string
}

// Render returns localized copy for one event. Unknown event types and
// malformed payloads are errors; retrying them cannot succeed.
func Render(loc Localizer, input Input) (Output, error) {
	switch normalizeToken(input.EventType) {
	case EventRequestSubmitted:
		return renderRequest(loc, input.PayloadJSON)
	case EventWeeklyDigest:
		return renderDigest(loc, input.PayloadJSON)
	default:
		return Output{}, fmt.Errorf("unknown notification event %q", input.EventType)
	}
}

func renderRequest(loc Localizer, raw string) (Output, error) {
	var event domain.RequestEvent
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return Output{}, fmt.Errorf("decode request event: %w", err)
	}

	lines := make([]string, 0, 5)
	if event.Name != "" {
		lines = append(lines, localize(loc, "notification.detail.name", event.Name))
	}
	if event.Email != "" {
		lines = append(lines, localize(loc, "notification.detail.email", event.Email))
	}
	lines = append(lines, localize(loc, "notification.detail.amount", event.Amount))
	if event.Reason != "" {
		lines = append(lines, localize(loc, "notification.detail.reason", event.Reason))
	}
	if !event.CreatedAt.IsZero() {
		lines = append(lines, localize(loc, "notification.detail.created", event.CreatedAt.UTC().Format(time.RFC3339)))
	}

	return Output{
		Title:   localize(loc, requestTitleKey(event.Kind, event.Type)),
		Details: strings.Join(lines, "\n"),
	}, nil
}

func requestTitleKey(kind account.ResourceKind, requestType account.RequestType) string {
	switch {
	case kind == account.KindCDNA && requestType == account.TypeTransfer:
		return "notification.cdna_transfer.title"
	case kind == account.KindCDNA && requestType == account.TypeIncentive:
		return "notification.cdna_incentive.title"
	case kind == account.KindPass && requestType == account.TypeIncentive:
		return "notification.pass_incentive.title"
	default:
		return "notification.pass_transfer.title"
	}
}

func renderDigest(loc Localizer, raw string) (Output, error) {
	var payload DigestPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return Output{}, fmt.Errorf("decode digest payload: %w", err)
	}
	if payload.Count <= 0 {
		return Output{}, fmt.Errorf("digest count must be positive")
	}
	return Output{
		Title:   localize(loc, "notification.weekly_digest.title"),
		Details: localize(loc, "notification.weekly_digest.details", payload.Count),
	}, nil
}

func localize(loc Localizer, key message.Reference, args ...any) string {
	if loc == nil {
		if asString, ok := key.(string); ok {
			return asString
		}
		return ""
	}
	return loc.Sprintf(key, args...)
}

func normalizeToken(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
