package model

import "time"

// Lock statuses. All mutations funnel through the booking creation CAS
// or the queue advancement processor; nothing writes status directly.
const (
	LockAvailable   = "available"
	LockBooked      = "booked"
	LockReserved    = "reserved"
	LockRented      = "rented"
	LockMaintenance = "maintenance"
)

type LockSize struct {
	Width  float64 `json:"width" bson:"width" validate:"required,gt=0"`
	Length float64 `json:"length" bson:"length" validate:"required,gt=0"`
	Unit   string  `json:"unit" bson:"unit" validate:"omitempty,oneof=m sqm"`
}

type LockPricing struct {
	Daily   float64 `json:"daily" bson:"daily" validate:"required,gt=0"`
	Weekly  float64 `json:"weekly,omitempty" bson:"weekly,omitempty" validate:"omitempty,gt=0"`
	Monthly float64 `json:"monthly,omitempty" bson:"monthly,omitempty" validate:"omitempty,gt=0"`
}

// Lock is a rentable market stall.
// ReservedTo and ReservationExpiresAt are both set iff status is
// reserved; everywhere else both are unset.
type Lock struct {
	ID          string      `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	LockNumber  string      `json:"lock_number" bson:"lock_number" validate:"required,min=1,max=20"`
	ZoneID      string      `json:"zone_id,omitempty" bson:"zone_id,omitempty" validate:"omitempty,mongodb"`
	Size        LockSize    `json:"size" bson:"size"`
	Pricing     LockPricing `json:"pricing" bson:"pricing"`
	Description string      `json:"description,omitempty" bson:"description,omitempty" validate:"omitempty,max=500"`
	Status      string      `json:"status" bson:"status" validate:"required,oneof=available booked reserved rented maintenance"`
	Features    []string    `json:"features,omitempty" bson:"features,omitempty"`
	IsActive    bool        `json:"is_active" bson:"is_active"`

	ReservedTo           string     `json:"reserved_to,omitempty" bson:"reserved_to,omitempty"`
	ReservationExpiresAt *time.Time `json:"reservation_expires_at,omitempty" bson:"reservation_expires_at,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// WeeklyAmount falls back to 7x the daily rate when no weekly price is set.
func (p LockPricing) WeeklyAmount() float64 {
	if p.Weekly > 0 {
		return p.Weekly
	}
	return p.Daily * 7
}

// MonthlyAmount falls back to 30x the daily rate when no monthly price is set.
func (p LockPricing) MonthlyAmount() float64 {
	if p.Monthly > 0 {
		return p.Monthly
	}
	return p.Daily * 30
}
