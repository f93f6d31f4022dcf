package model

import "time"

// Audit actions recorded for admin and system state changes.
const (
	AuditBookingCreated   = "booking_created"
	AuditQueueReserved    = "queue_reserved"
	AuditPaymentApproved  = "payment_approved"
	AuditPaymentRejected  = "payment_rejected"
	AuditBookingExpired   = "booking_expired"
	AuditBookingCancelled = "booking_cancelled"
	AuditReservationLapse = "reservation_lapsed"
	AuditLockCreated      = "lock_created"
	AuditLockUpdated      = "lock_updated"
	AuditLockDeactivated  = "lock_deactivated"
)

// AuditLog is an append-only record of who changed what.
type AuditLog struct {
	ID      string `json:"id,omitempty" bson:"_id,omitempty"`
	Action  string `json:"action" bson:"action"`
	ActorID string `json:"actor_id,omitempty" bson:"actor_id,omitempty"`

	LockID    string `json:"lock_id,omitempty" bson:"lock_id,omitempty"`
	BookingID string `json:"booking_id,omitempty" bson:"booking_id,omitempty"`

	Detail    map[string]any `json:"detail,omitempty" bson:"detail,omitempty"`
	CreatedAt time.Time      `json:"created_at" bson:"created_at"`
}
