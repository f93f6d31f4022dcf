package model

import "time"

// Booking statuses. pending_payment waits for a slip upload,
// pending_verification waits for the admin decision, active means the
// rental is paid and running.
const (
	BookingPendingPayment      = "pending_payment"
	BookingPendingVerification = "pending_verification"
	BookingActive              = "active"
	BookingExpired             = "expired"
	BookingCancelled           = "cancelled"
)

// Rental period types.
const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
)

// Booking ties a user to a lock for a rental period. StartDate and
// EndDate are inclusive calendar days stored at midnight UTC.
type Booking struct {
	ID         string `json:"id,omitempty" bson:"_id,omitempty"`
	LockID     string `json:"lock_id" bson:"lock_id"`
	LockNumber string `json:"lock_number,omitempty" bson:"lock_number,omitempty"`
	UserID     string `json:"user_id" bson:"user_id"`

	PeriodType string    `json:"period_type" bson:"period_type"`
	StartDate  time.Time `json:"start_date" bson:"start_date"`
	EndDate    time.Time `json:"end_date" bson:"end_date"`
	Amount     float64   `json:"amount" bson:"amount"`

	Status          string     `json:"status" bson:"status"`
	PaymentDeadline time.Time  `json:"payment_deadline" bson:"payment_deadline"`
	PaymentSlipURL  string     `json:"payment_slip_url,omitempty" bson:"payment_slip_url,omitempty"`
	SlipUploadedAt  *time.Time `json:"slip_uploaded_at,omitempty" bson:"slip_uploaded_at,omitempty"`
	VerifiedBy      string     `json:"verified_by,omitempty" bson:"verified_by,omitempty"`
	VerifiedAt      *time.Time `json:"verified_at,omitempty" bson:"verified_at,omitempty"`
	RejectReason    string     `json:"reject_reason,omitempty" bson:"reject_reason,omitempty"`

	RenewalNotified bool `json:"renewal_notified" bson:"renewal_notified"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Overlaps reports whether the booking's inclusive date range
// intersects [start, end].
func (b *Booking) Overlaps(start, end time.Time) bool {
	return !b.StartDate.After(end) && !b.EndDate.Before(start)
}

// Occupying reports whether the booking currently holds the lock.
func (b *Booking) Occupying() bool {
	switch b.Status {
	case BookingPendingPayment, BookingPendingVerification, BookingActive:
		return true
	}
	return false
}
