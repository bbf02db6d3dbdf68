package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/events"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/metrics"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/models"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/repository"
)

type helperReader interface {
	GetActiveHelper(ctx context.Context, id int64) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type BookingEventPublisher interface {
	PublishBookingEvent(ctx context.Context, event string, b *models.Booking) error
}

// BookingService owns the booking lifecycle. All mutating operations load
// the row FOR UPDATE and apply status-guarded updates, so concurrent
// transitions on one booking serialize instead of double-spending credits.
type BookingService struct {
	db              *pgxpool.Pool
	bookingRepo     *repository.BookingRepository
	userRepo        helperReader
	events          BookingEventPublisher
	creditUnitValue float64
}

func NewBookingService(
	db *pgxpool.Pool,
	bookingRepo *repository.BookingRepository,
	userRepo helperReader,
	publisher BookingEventPublisher,
	creditUnitValue float64,
) *BookingService {
	return &BookingService{
		db:              db,
		bookingRepo:     bookingRepo,
		userRepo:        userRepo,
		events:          publisher,
		creditUnitValue: creditUnitValue,
	}
}

type ScheduleInput struct {
	HelperID        int64
	Title           string
	Description     string
	Type            string
	Specialty       *string
	ScheduledAt     time.Time
	DurationMinutes int
	Issue           *string
	Requirements    *string
}

func (s *BookingService) Schedule(
	ctx context.Context,
	clientID int64,
	input ScheduleInput,
) (*models.Booking, error) {
	if input.HelperID <= 0 || clientID == input.HelperID {
		return nil, fmt.Errorf("%w: invalid helper", ErrInvalidInput)
	}
	if strings.TrimSpace(input.Title) == "" || strings.TrimSpace(input.Description) == "" {
		return nil, fmt.Errorf("%w: title and description are required", ErrInvalidInput)
	}
	if !validBookingType(input.Type) {
		return nil, fmt.Errorf("%w: unknown booking type %q", ErrInvalidInput, input.Type)
	}
	if !validDuration(input.DurationMinutes) {
		return nil, fmt.Errorf(
			"%w: duration must be between %d and %d minutes",
			ErrInvalidInput, MinDurationMinutes, MaxDurationMinutes,
		)
	}
	if input.ScheduledAt.Before(time.Now().Add(-1 * time.Minute)) {
		return nil, fmt.Errorf("%w: scheduled time must be in the future", ErrInvalidInput)
	}

	helper, err := s.userRepo.GetActiveHelper(ctx, input.HelperID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrHelperUnavailable
		}
		return nil, err
	}
	if helper.HourlyRate == nil || *helper.HourlyRate <= 0 {
		return nil, ErrHelperUnavailable
	}

	rate := *helper.HourlyRate
	totalCost := estimateCost(input.DurationMinutes, rate)
	creditsReserved := creditsFor(totalCost, s.creditUnitValue)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txBookingRepo := repository.NewBookingRepository(tx)

	// Serializes concurrent scheduling per helper so the conflict check and
	// the insert see a consistent calendar.
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", input.HelperID); err != nil {
		return nil, err
	}

	hasConflict, err := txBookingRepo.HasConflict(
		ctx,
		input.HelperID,
		input.ScheduledAt.UTC(),
		input.DurationMinutes,
	)
	if err != nil {
		return nil, err
	}
	if hasConflict {
		metrics.ScheduleConflicts.Inc()
		return nil, ErrScheduleConflict
	}

	booking, err := txBookingRepo.Create(ctx, repository.CreateBookingInput{
		ClientID:        clientID,
		HelperID:        input.HelperID,
		Title:           strings.TrimSpace(input.Title),
		Description:     strings.TrimSpace(input.Description),
		Type:            input.Type,
		Specialty:       input.Specialty,
		ScheduledAt:     input.ScheduledAt.UTC(),
		DurationMinutes: input.DurationMinutes,
		HourlyRate:      rate,
		TotalCost:       totalCost,
		CreditsReserved: creditsReserved,
		Issue:           input.Issue,
		Requirements:    input.Requirements,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	metrics.BookingsScheduled.Inc()
	return booking, nil
}

// Respond applies the helper's accept or reject decision to a pending
// booking. Accepting debits the client inside the same transaction as the
// confirm, so a failed debit leaves the booking pending and the balance
// untouched.
func (s *BookingService) Respond(
	ctx context.Context,
	helperID int64,
	bookingID int64,
	accept bool,
	message *string,
) (*models.Booking, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txBookingRepo := repository.NewBookingRepository(tx)

	booking, err := txBookingRepo.GetByIDForUpdate(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.HelperID != helperID {
		return nil, ErrForbidden
	}

	target := models.BookingStatusConfirmed
	if !accept {
		target = models.BookingStatusRejected
	}
	if err := checkTransition(booking.Status, target); err != nil {
		return nil, err
	}

	var updated *models.Booking
	if accept {
		if _, err := applyLedger(ctx, tx, LedgerInput{
			UserID:      booking.ClientID,
			Type:        models.TransactionTypeUsage,
			Credits:     -booking.CreditsReserved,
			BookingID:   &booking.ID,
			Description: fmt.Sprintf("Credits used for booking #%d - %s", booking.ID, booking.Title),
		}); err != nil {
			return nil, err
		}
		updated, err = txBookingRepo.Confirm(ctx, bookingID)
	} else {
		updated, err = txBookingRepo.Reject(ctx, bookingID, message)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &TransitionError{From: booking.Status, To: target}
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	metrics.BookingTransitions.WithLabelValues(updated.Status).Inc()
	if accept {
		s.publish(ctx, events.BookingConfirmed, updated)
	}
	return updated, nil
}

// Start moves a confirmed booking into progress. The transition opens 15
// minutes before the scheduled start and never closes; a late helper can
// still start.
func (s *BookingService) Start(
	ctx context.Context,
	helperID int64,
	bookingID int64,
) (*models.Booking, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txBookingRepo := repository.NewBookingRepository(tx)

	booking, err := txBookingRepo.GetByIDForUpdate(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.HelperID != helperID {
		return nil, ErrForbidden
	}
	if err := checkTransition(booking.Status, models.BookingStatusInProgress); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if !canStart(booking, now) {
		return nil, fmt.Errorf(
			"%w: booking can only be started within %d minutes of the scheduled time",
			ErrInvalidInput, int(startLeadTime.Minutes()),
		)
	}

	updated, err := txBookingRepo.Start(ctx, bookingID, now)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &TransitionError{From: booking.Status, To: models.BookingStatusInProgress}
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	metrics.BookingTransitions.WithLabelValues(updated.Status).Inc()
	s.publish(ctx, events.BookingStarted, updated)
	return updated, nil
}

// Complete closes an in-progress booking. Credits were captured at
// confirmation; the actual duration is recorded but never reconciled against
// the estimate.
func (s *BookingService) Complete(
	ctx context.Context,
	helperID int64,
	bookingID int64,
	resolution *string,
	notes *string,
) (*models.Booking, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txBookingRepo := repository.NewBookingRepository(tx)

	booking, err := txBookingRepo.GetByIDForUpdate(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.HelperID != helperID {
		return nil, ErrForbidden
	}
	if err := checkTransition(booking.Status, models.BookingStatusCompleted); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	actualDuration := booking.DurationMinutes
	if booking.StartedAt != nil {
		actualDuration = int(math.Round(now.Sub(*booking.StartedAt).Minutes()))
	}

	updated, err := txBookingRepo.Complete(ctx, bookingID, now, actualDuration, resolution, notes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &TransitionError{From: booking.Status, To: models.BookingStatusCompleted}
		}
		return nil, err
	}

	if err := repository.NewUserRepository(tx).IncrementTotalSessions(ctx, booking.HelperID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	metrics.BookingTransitions.WithLabelValues(updated.Status).Inc()
	s.publish(ctx, events.BookingCompleted, updated)
	return updated, nil
}

// Cancel is open to either participant while the booking is pending or
// confirmed and more than 2 hours away. A confirmed (already debited)
// booking gets a compensating refund entry in the same transaction.
func (s *BookingService) Cancel(
	ctx context.Context,
	actorID int64,
	bookingID int64,
	reason *string,
) (*models.Booking, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txBookingRepo := repository.NewBookingRepository(tx)

	booking, err := txBookingRepo.GetByIDForUpdate(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.ClientID != actorID && booking.HelperID != actorID {
		return nil, ErrForbidden
	}
	if err := checkTransition(booking.Status, models.BookingStatusCancelled); err != nil {
		return nil, err
	}
	if !canCancel(booking, time.Now().UTC()) {
		return nil, fmt.Errorf(
			"%w: bookings can only be cancelled more than %d hours before the scheduled start",
			ErrInvalidInput, int(cancelLeadTime.Hours()),
		)
	}

	refund := booking.Status == models.BookingStatusConfirmed &&
		booking.PaymentStatus == models.PaymentStatusPaid
	if refund {
		if _, err := applyLedger(ctx, tx, LedgerInput{
			UserID:      booking.ClientID,
			Type:        models.TransactionTypeRefund,
			Credits:     booking.CreditsReserved,
			BookingID:   &booking.ID,
			Description: fmt.Sprintf("Refund for cancelled booking #%d - %s", booking.ID, booking.Title),
		}); err != nil {
			return nil, err
		}
	}

	updated, err := txBookingRepo.Cancel(ctx, bookingID, booking.Status, refund, reason)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &TransitionError{From: booking.Status, To: models.BookingStatusCancelled}
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	metrics.BookingTransitions.WithLabelValues(updated.Status).Inc()
	s.publish(ctx, events.BookingCancelled, updated)
	return updated, nil
}

// Rate stores the client's rating on a completed booking and recomputes the
// helper's average from scratch.
func (s *BookingService) Rate(
	ctx context.Context,
	clientID int64,
	bookingID int64,
	rating int,
	feedback *string,
) (*models.Booking, error) {
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidInput)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txBookingRepo := repository.NewBookingRepository(tx)

	booking, err := txBookingRepo.GetByIDForUpdate(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.ClientID != clientID {
		return nil, ErrForbidden
	}
	if booking.Status != models.BookingStatusCompleted {
		return nil, fmt.Errorf("%w: only completed bookings can be rated", ErrInvalidInput)
	}

	updated, err := txBookingRepo.SetClientRating(ctx, bookingID, rating, feedback)
	if err != nil {
		return nil, err
	}

	avg, count, err := txBookingRepo.AverageClientRating(ctx, booking.HelperID)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		if err := repository.NewUserRepository(tx).UpdateRating(ctx, booking.HelperID, roundRating(avg)); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return updated, nil
}

func (s *BookingService) GetBooking(
	ctx context.Context,
	actorID int64,
	bookingID int64,
) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.ClientID != actorID && booking.HelperID != actorID {
		return nil, ErrForbidden
	}
	return booking, nil
}

func (s *BookingService) ListBookings(
	ctx context.Context,
	filter repository.BookingListFilter,
) ([]models.Booking, int, error) {
	return s.bookingRepo.List(ctx, filter)
}

// publish is best-effort: the relay losing an event must never roll back a
// committed transition.
func (s *BookingService) publish(ctx context.Context, event string, b *models.Booking) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishBookingEvent(ctx, event, b); err != nil {
		log.Printf("failed to publish %s for booking %d: %v", event, b.ID, err)
	}
}
