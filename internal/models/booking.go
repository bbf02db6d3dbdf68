package models

import "time"

const (
	BookingStatusPending    = "pending"
	BookingStatusConfirmed  = "confirmed"
	BookingStatusInProgress = "in_progress"
	BookingStatusCompleted  = "completed"
	BookingStatusCancelled  = "cancelled"
	BookingStatusRejected   = "rejected"
)

const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusRefunded = "refunded"
	PaymentStatusFailed   = "failed"
)

const (
	BookingTypeConsultation = "consultation"
	BookingTypeSupport      = "support"
	BookingTypeTraining     = "training"
	BookingTypeMaintenance  = "maintenance"
)

type Booking struct {
	ID       int64 `json:"id"`
	ClientID int64 `json:"client_id"`
	HelperID int64 `json:"helper_id"`

	Title       string  `json:"title"`
	Description string  `json:"description"`
	Type        string  `json:"type"`
	Specialty   *string `json:"specialty,omitempty"`

	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes"`

	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`

	// HourlyRate is snapshotted from the helper at creation and never
	// re-read, so later rate changes cannot drift the booking's cost.
	HourlyRate      float64 `json:"hourly_rate"`
	TotalCost       float64 `json:"total_cost"`
	CreditsReserved int     `json:"credits_reserved"`

	Issue        *string `json:"issue,omitempty"`
	Requirements *string `json:"requirements,omitempty"`
	Notes        *string `json:"notes,omitempty"`
	Resolution   *string `json:"resolution,omitempty"`

	ClientRating   *int    `json:"client_rating,omitempty"`
	ClientFeedback *string `json:"client_feedback,omitempty"`

	StartedAt             *time.Time `json:"started_at,omitempty"`
	CompletedAt           *time.Time `json:"completed_at,omitempty"`
	ActualDurationMinutes *int       `json:"actual_duration_minutes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// End returns the half-open end of the scheduled window.
func (b *Booking) End() time.Time {
	return b.ScheduledAt.Add(time.Duration(b.DurationMinutes) * time.Minute)
}

type PaginationMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}
