package services

import (
	"math"
	"time"

	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/models"
)

const (
	// MinDurationMinutes and MaxDurationMinutes bound a booking window.
	MinDurationMinutes = 15
	MaxDurationMinutes = 480

	// startLeadTime is how early a confirmed booking may be started.
	startLeadTime = 15 * time.Minute

	// cancelLeadTime is the minimum gap to the scheduled start required to
	// cancel.
	cancelLeadTime = 2 * time.Hour
)

var bookingTransitions = map[string][]string{
	models.BookingStatusPending:    {models.BookingStatusConfirmed, models.BookingStatusRejected, models.BookingStatusCancelled},
	models.BookingStatusConfirmed:  {models.BookingStatusInProgress, models.BookingStatusCancelled},
	models.BookingStatusInProgress: {models.BookingStatusCompleted},
}

func canTransition(from, to string) bool {
	for _, next := range bookingTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func checkTransition(from, to string) error {
	if !canTransition(from, to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}

// canStart gates the confirmed→in_progress transition on the time window:
// from 15 minutes before the scheduled start, with no upper bound on
// lateness.
func canStart(b *models.Booking, now time.Time) bool {
	return !now.Before(b.ScheduledAt.Add(-startLeadTime))
}

// canCancel holds while the booking is still more than 2 hours away.
func canCancel(b *models.Booking, now time.Time) bool {
	return now.Before(b.ScheduledAt.Add(-cancelLeadTime))
}

func estimateCost(durationMinutes int, hourlyRate float64) float64 {
	return float64(durationMinutes) / 60 * hourlyRate
}

// creditsFor converts a cost into whole credits, always rounding up in the
// platform's favor.
func creditsFor(totalCost, creditUnitValue float64) int {
	return int(math.Ceil(totalCost / creditUnitValue))
}

// roundRating rounds an average client rating to one decimal place.
func roundRating(avg float64) float64 {
	return math.Round(avg*10) / 10
}

func validDuration(minutes int) bool {
	return minutes >= MinDurationMinutes && minutes <= MaxDurationMinutes
}

func validBookingType(t string) bool {
	switch t {
	case models.BookingTypeConsultation, models.BookingTypeSupport,
		models.BookingTypeTraining, models.BookingTypeMaintenance:
		return true
	}
	return false
}
