package models

import "time"

// ReservationStatus represents the lifecycle state of a booking
type ReservationStatus string

const (
	StatusPendingPayment ReservationStatus = "pending_payment"
	StatusConfirmed      ReservationStatus = "confirmed"
	StatusCancelled      ReservationStatus = "cancelled"
	StatusCompleted      ReservationStatus = "completed"
)

// PaymentStatus tracks money state independently of the lifecycle
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

type Reservation struct {
	ID              uint              `json:"id" gorm:"primaryKey"`
	SalonID         uint              `json:"salon_id" gorm:"not null;index:idx_salon_slot,unique,where:status <> 'cancelled'"`
	Salon           Salon             `json:"salon,omitempty" gorm:"foreignKey:SalonID"`
	ClientID        uint              `json:"client_id" gorm:"not null"`
	Client          User              `json:"client,omitempty" gorm:"foreignKey:ClientID"`
	ServiceType     string            `json:"service_type"` // manucure, pose, etc.
	AppointmentDate time.Time         `json:"appointment_date" gorm:"index:idx_salon_slot,unique,where:status <> 'cancelled'"`
	DurationMinutes int               `json:"duration_minutes" gorm:"default:60"`
	Price           float64           `json:"price"`
	Status          ReservationStatus `json:"status" gorm:"not null;default:'confirmed'"`
	PaymentStatus   PaymentStatus     `json:"payment_status" gorm:"not null;default:'pending'"`
	StripePaymentID string            `json:"stripe_payment_id,omitempty" gorm:"index"`
	ClientNotes     string            `json:"client_notes"`
	CreatedAt       time.Time         `json:"created_at"`
}

// End returns the moment the appointment finishes.
func (r *Reservation) End() time.Time {
	return r.AppointmentDate.Add(time.Duration(r.DurationMinutes) * time.Minute)
}

// Overlaps reports whether [start, end) collides with this reservation.
func (r *Reservation) Overlaps(start, end time.Time) bool {
	return start.Before(r.End()) && r.AppointmentDate.Before(end)
}
