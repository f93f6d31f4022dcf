package notify

import (
	"strings"
	"testing"
	"time"

	"talad/internal/notify/events"
	"talad/pkg/model"
)

func TestChannelsFor(t *testing.T) {
	cases := []struct {
		eventType string
		want      []string
	}{
		{events.QueueOffer, []string{model.ChannelInApp, model.ChannelEmail}},
		{events.PaymentApproved, []string{model.ChannelInApp, model.ChannelEmail}},
		{events.PaymentRejected, []string{model.ChannelInApp, model.ChannelEmail}},
		{events.RenewalNotice, []string{model.ChannelInApp, model.ChannelEmail}},
		{events.BookingCreated, []string{model.ChannelInApp}},
		{events.BookingQueued, []string{model.ChannelInApp}},
		{events.LockBecameFree, []string{model.ChannelInApp}},
		{events.QueuePurged, []string{model.ChannelInApp}},
		{"something.else", nil},
	}
	for _, tc := range cases {
		t.Run(tc.eventType, func(t *testing.T) {
			got := ChannelsFor(tc.eventType)
			if len(got) != len(tc.want) {
				t.Fatalf("ChannelsFor(%q) = %v, want %v", tc.eventType, got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("ChannelsFor(%q)[%d] = %q, want %q", tc.eventType, i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestFanOut(t *testing.T) {
	if !FanOut(events.LockBecameFree) {
		t.Error("lock.became_free must fan out")
	}
	for _, eventType := range []string{
		events.QueueOffer,
		events.BookingCreated,
		events.PaymentApproved,
	} {
		if FanOut(eventType) {
			t.Errorf("%s must address a single recipient", eventType)
		}
	}
}

func TestRenderCarriesEventFacts(t *testing.T) {
	deadline := time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC)

	t.Run("queue offer", func(t *testing.T) {
		title, body := Render(events.Event{
			Type:       events.QueueOffer,
			LockNumber: "A-01",
			Deadline:   deadline,
		})
		if title == "" {
			t.Error("title must not be empty")
		}
		if !strings.Contains(body, "A-01") {
			t.Errorf("body %q must name the lock", body)
		}
		if !strings.Contains(body, "18:00") {
			t.Errorf("body %q must carry the deadline", body)
		}
	})

	t.Run("rejection with reason", func(t *testing.T) {
		_, body := Render(events.Event{
			Type:       events.PaymentRejected,
			LockNumber: "A-01",
			Reason:     "amount mismatch",
			Deadline:   deadline,
		})
		if !strings.Contains(body, "amount mismatch") {
			t.Errorf("body %q must carry the rejection reason", body)
		}
	})

	t.Run("rejection without reason", func(t *testing.T) {
		_, body := Render(events.Event{
			Type:       events.PaymentRejected,
			LockNumber: "A-01",
			Deadline:   deadline,
		})
		if strings.Contains(body, "Reason:") {
			t.Errorf("body %q must omit the reason clause when none is set", body)
		}
	})

	t.Run("unknown event", func(t *testing.T) {
		title, body := Render(events.Event{Type: "mystery.event", LockNumber: "A-01"})
		if title == "" || body == "" {
			t.Error("unknown events still render a generic notification")
		}
	})
}
