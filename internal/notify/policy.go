package notify

import (
	"talad/internal/notify/events"
	"talad/pkg/model"
)

// ChannelsFor maps an event type to the delivery channels it goes out
// on. Events not listed stay internal (audit only). Pure lookup, no IO.
func ChannelsFor(eventType string) []string {
	switch eventType {
	case events.QueueOffer, events.PaymentApproved, events.PaymentRejected, events.RenewalNotice:
		return []string{model.ChannelInApp, model.ChannelEmail}
	case events.BookingCreated,
		events.BookingQueued,
		events.BookingExpired,
		events.BookingCancelled,
		events.ReservationLapsed,
		events.RentalEnded,
		events.QueuePurged,
		events.LockBecameFree:
		return []string{model.ChannelInApp}
	default:
		return nil
	}
}

// FanOut reports whether the event addresses a set of users resolved
// at delivery time rather than a single recipient.
func FanOut(eventType string) bool {
	return eventType == events.LockBecameFree
}
