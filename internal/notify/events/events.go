package events

import "time"

// Event types carried on the notification topic.
const (
	BookingCreated     = "booking.created"
	BookingQueued      = "booking.queued"
	PaymentApproved    = "payment.approved"
	PaymentRejected    = "payment.rejected"
	BookingExpired     = "booking.expired"
	BookingCancelled   = "booking.cancelled"
	QueueOffer         = "queue.offer"
	ReservationLapsed  = "reservation.lapsed"
	RentalEnded        = "rental.ended"
	RenewalNotice      = "renewal.notice"
	LockBecameFree     = "lock.became_free"
	QueuePurged        = "queue.purged"
)

// Event is the wire payload for a domain occurrence the notifier fans
// out. UserID is the primary recipient; fan-out events (lock.became_free)
// leave it empty and the worker resolves recipients.
type Event struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id,omitempty"`
	LockID     string    `json:"lock_id,omitempty"`
	LockNumber string    `json:"lock_number,omitempty"`
	ZoneID     string    `json:"zone_id,omitempty"`
	BookingID  string    `json:"booking_id,omitempty"`
	Amount     float64   `json:"amount,omitempty"`
	Deadline   time.Time `json:"deadline,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
