package kafka

import (
	"testing"
)

func TestMessageBuilder(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	msg := NewMessage().
		WithKey("user-1").
		WithValue(payload{Name: "hello"}).
		WithEventType("booking.created").
		WithSource("rental").
		Build()

	if msg.Key != "user-1" {
		t.Errorf("key = %q", msg.Key)
	}
	if msg.GetEventType() != "booking.created" {
		t.Errorf("event type = %q", msg.GetEventType())
	}
	if msg.Headers[HeaderSource] != "rental" {
		t.Errorf("source = %q", msg.Headers[HeaderSource])
	}
	if msg.GetEventID() == "" {
		t.Error("Build must assign an event id")
	}
	if msg.Headers[HeaderTimestamp] == "" {
		t.Error("Build must stamp the message")
	}

	var decoded payload
	if err := msg.DecodeValue(&decoded); err != nil {
		t.Fatalf("DecodeValue returned error: %v", err)
	}
	if decoded.Name != "hello" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestRetryCount(t *testing.T) {
	msg := NewMessage().Build()

	if got := msg.GetRetryCount(); got != 0 {
		t.Fatalf("initial retry count = %d, want 0", got)
	}

	msg.IncrementRetryCount()
	msg.IncrementRetryCount()
	if got := msg.GetRetryCount(); got != 2 {
		t.Errorf("retry count = %d, want 2", got)
	}

	msg.Headers[HeaderRetryCount] = "junk"
	if got := msg.GetRetryCount(); got != 0 {
		t.Errorf("retry count with junk header = %d, want 0", got)
	}
}
