package domain

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/storage"
	"github.com/fighterspassapp/dp-pass-app/internal/services/notifications/emailjs"
	"github.com/fighterspassapp/dp-pass-app/internal/services/notifications/render"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type fakeSender struct {
	last emailjs.Message
	err  error
}

func (s *fakeSender) Send(_ context.Context, msg emailjs.Message) error {
	s.last = msg
	return s.err
}

func TestEmailHandler_HandleSuccess(t *testing.T) {
	sender := &fakeSender{}
	handler := NewEmailHandler(sender, []string{" admin@example.com ", ""}, message.NewPrinter(language.English))

	err := handler.Handle(context.Background(), storage.OutboxEvent{
		ID:          "evt-1",
		EventType:   render.EventWeeklyDigest,
		PayloadJSON: `{"request_kind":"pass","count":3}`,
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(sender.last.Recipients) != 1 || sender.last.Recipients[0] != "admin@example.com" {
		t.Fatalf("recipients = %v", sender.last.Recipients)
	}
	if sender.last.Title != "Weekly FalconNet Transfer Pending" {
		t.Fatalf("title = %q", sender.last.Title)
	}
}

func TestEmailHandler_MalformedPayloadPermanent(t *testing.T) {
	handler := NewEmailHandler(&fakeSender{}, []string{"admin@example.com"}, nil)

	err := handler.Handle(context.Background(), storage.OutboxEvent{EventType: render.EventRequestSubmitted, PayloadJSON: "{"})
	if err == nil || !IsPermanent(err) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}

func TestEmailHandler_NoRecipientsPermanent(t *testing.T) {
	handler := NewEmailHandler(&fakeSender{}, nil, nil)

	err := handler.Handle(context.Background(), storage.OutboxEvent{EventType: render.EventWeeklyDigest, PayloadJSON: `{"count":1}`})
	if !IsPermanent(err) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}

func TestIsPermanentClassifiesTransportErrors(t *testing.T) {
	if IsPermanent(errors.New("connection reset")) {
		t.Fatal("plain errors are retryable")
	}
	if !IsPermanent(&emailjs.StatusError{StatusCode: http.StatusBadRequest}) {
		t.Fatal("4xx responses are permanent")
	}
	if IsPermanent(&emailjs.StatusError{StatusCode: http.StatusServiceUnavailable}) {
		t.Fatal("5xx responses are retryable")
	}
	if IsPermanent(Permanent(nil)) {
		t.Fatal("nil stays nil")
	}
}
