package services

import (
	"errors"
	"testing"
	"time"

	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/models"
)

func TestBookingTransitions(t *testing.T) {
	cases := []struct {
		from    string
		to      string
		allowed bool
	}{
		{models.BookingStatusPending, models.BookingStatusConfirmed, true},
		{models.BookingStatusPending, models.BookingStatusRejected, true},
		{models.BookingStatusPending, models.BookingStatusCancelled, true},
		{models.BookingStatusPending, models.BookingStatusInProgress, false},
		{models.BookingStatusPending, models.BookingStatusCompleted, false},
		{models.BookingStatusConfirmed, models.BookingStatusInProgress, true},
		{models.BookingStatusConfirmed, models.BookingStatusCancelled, true},
		{models.BookingStatusConfirmed, models.BookingStatusCompleted, false},
		{models.BookingStatusConfirmed, models.BookingStatusRejected, false},
		{models.BookingStatusInProgress, models.BookingStatusCompleted, true},
		{models.BookingStatusInProgress, models.BookingStatusCancelled, false},
		{models.BookingStatusCompleted, models.BookingStatusCancelled, false},
		{models.BookingStatusCompleted, models.BookingStatusInProgress, false},
		{models.BookingStatusCancelled, models.BookingStatusConfirmed, false},
		{models.BookingStatusRejected, models.BookingStatusConfirmed, false},
	}

	for _, tc := range cases {
		if got := canTransition(tc.from, tc.to); got != tc.allowed {
			t.Errorf("canTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestCheckTransitionMatchesSentinel(t *testing.T) {
	err := checkTransition(models.BookingStatusCompleted, models.BookingStatusCancelled)
	if err == nil {
		t.Fatal("expected error for completed -> cancelled")
	}
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	var transitionErr *TransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("expected *TransitionError, got %T", err)
	}
	if transitionErr.From != models.BookingStatusCompleted || transitionErr.To != models.BookingStatusCancelled {
		t.Fatalf("unexpected state pair: %s -> %s", transitionErr.From, transitionErr.To)
	}

	if err := checkTransition(models.BookingStatusPending, models.BookingStatusConfirmed); err != nil {
		t.Fatalf("expected pending -> confirmed to be allowed, got %v", err)
	}
}

func TestCanStart(t *testing.T) {
	scheduled := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	booking := &models.Booking{ScheduledAt: scheduled}

	cases := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"sixteen minutes early", scheduled.Add(-16 * time.Minute), false},
		{"exactly fifteen minutes early", scheduled.Add(-15 * time.Minute), true},
		{"on time", scheduled, true},
		{"an hour late", scheduled.Add(time.Hour), true},
	}
	for _, tc := range cases {
		if got := canStart(booking, tc.now); got != tc.want {
			t.Errorf("%s: canStart = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestCanCancel(t *testing.T) {
	scheduled := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	booking := &models.Booking{ScheduledAt: scheduled}

	cases := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"a day before", scheduled.Add(-24 * time.Hour), true},
		{"three hours before", scheduled.Add(-3 * time.Hour), true},
		{"exactly two hours before", scheduled.Add(-2 * time.Hour), false},
		{"one hour before", scheduled.Add(-time.Hour), false},
		{"after start", scheduled.Add(time.Minute), false},
	}
	for _, tc := range cases {
		if got := canCancel(booking, tc.now); got != tc.want {
			t.Errorf("%s: canCancel = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestEstimateCostAndCredits(t *testing.T) {
	cases := []struct {
		durationMinutes int
		hourlyRate      float64
		wantCost        float64
		wantCredits     int
	}{
		{60, 100, 100, 10},
		{30, 100, 50, 5},
		{90, 100, 150, 15},
		{45, 100, 75, 8}, // 7.5 credits round up
		{15, 100, 25, 3}, // 2.5 credits round up
		{60, 95, 95, 10}, // 9.5 credits round up
		{60, 101, 101, 11},
	}

	for _, tc := range cases {
		cost := estimateCost(tc.durationMinutes, tc.hourlyRate)
		if cost != tc.wantCost {
			t.Errorf("estimateCost(%d, %v) = %v, want %v", tc.durationMinutes, tc.hourlyRate, cost, tc.wantCost)
		}
		if credits := creditsFor(cost, 10); credits != tc.wantCredits {
			t.Errorf("creditsFor(%v, 10) = %d, want %d", cost, credits, tc.wantCredits)
		}
	}
}

func TestRoundRating(t *testing.T) {
	cases := []struct {
		avg  float64
		want float64
	}{
		{4.0, 4.0},
		{4.25, 4.3},
		{4.24, 4.2},
		{3.333333, 3.3},
		{4.666666, 4.7},
		{5.0, 5.0},
	}
	for _, tc := range cases {
		if got := roundRating(tc.avg); got != tc.want {
			t.Errorf("roundRating(%v) = %v, want %v", tc.avg, got, tc.want)
		}
	}
}

func TestValidDuration(t *testing.T) {
	cases := []struct {
		minutes int
		want    bool
	}{
		{14, false},
		{15, true},
		{60, true},
		{480, true},
		{481, false},
		{0, false},
		{-30, false},
	}
	for _, tc := range cases {
		if got := validDuration(tc.minutes); got != tc.want {
			t.Errorf("validDuration(%d) = %v, want %v", tc.minutes, got, tc.want)
		}
	}
}

func TestValidBookingType(t *testing.T) {
	for _, valid := range []string{
		models.BookingTypeConsultation,
		models.BookingTypeSupport,
		models.BookingTypeTraining,
		models.BookingTypeMaintenance,
	} {
		if !validBookingType(valid) {
			t.Errorf("expected %q to be a valid booking type", valid)
		}
	}
	for _, invalid := range []string{"", "remote", "CONSULTATION", "repair"} {
		if validBookingType(invalid) {
			t.Errorf("expected %q to be rejected", invalid)
		}
	}
}
