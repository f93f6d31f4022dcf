package notify

import (
	"fmt"

	"talad/internal/notify/events"
)

// Render turns an event into a user-facing title and body.
func Render(event events.Event) (string, string) {
	switch event.Type {
	case events.BookingCreated:
		return "Booking confirmed, payment pending",
			fmt.Sprintf("Lock %s is held for you. Pay %.2f and upload the slip before %s or the booking expires.",
				event.LockNumber, event.Amount, event.Deadline.Format("15:04 Jan 2"))
	case events.BookingQueued:
		return "You are in the queue",
			fmt.Sprintf("Lock %s is taken right now. You were added to its waiting queue.", event.LockNumber)
	case events.PaymentApproved:
		return "Payment approved",
			fmt.Sprintf("Your payment for lock %s was verified. The stall is yours for the booked period.", event.LockNumber)
	case events.PaymentRejected:
		body := fmt.Sprintf("Your payment slip for lock %s was rejected.", event.LockNumber)
		if event.Reason != "" {
			body = fmt.Sprintf("%s Reason: %s.", body, event.Reason)
		}
		return "Payment rejected",
			fmt.Sprintf("%s Upload a corrected slip before %s.", body, event.Deadline.Format("15:04 Jan 2"))
	case events.BookingExpired:
		return "Booking expired",
			fmt.Sprintf("Your booking for lock %s expired because payment was not verified in time.", event.LockNumber)
	case events.BookingCancelled:
		return "Booking cancelled",
			fmt.Sprintf("Your booking for lock %s was cancelled.", event.LockNumber)
	case events.QueueOffer:
		return "It is your turn",
			fmt.Sprintf("Lock %s is reserved for you until %s. Book it now before the window closes.",
				event.LockNumber, event.Deadline.Format("15:04 Jan 2"))
	case events.ReservationLapsed:
		return "Reservation window missed",
			fmt.Sprintf("Your reservation window for lock %s passed and your queue spot was released.", event.LockNumber)
	case events.RentalEnded:
		return "Rental ended",
			fmt.Sprintf("Your rental of lock %s has ended. Thank you.", event.LockNumber)
	case events.RenewalNotice:
		return "Rental ending soon",
			fmt.Sprintf("Your rental of lock %s ends on %s. Book again to keep the stall.",
				event.LockNumber, event.Deadline.Format("Jan 2"))
	case events.QueuePurged:
		return "Queue closed",
			fmt.Sprintf("Lock %s was rented for its full period, so its waiting queue was closed and your spot released.", event.LockNumber)
	case events.LockBecameFree:
		return "A lock became available",
			fmt.Sprintf("Lock %s is now free. Book it before someone else does.", event.LockNumber)
	default:
		return "Notification", fmt.Sprintf("Event %s on lock %s.", event.Type, event.LockNumber)
	}
}
