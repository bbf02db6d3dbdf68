package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/models"
)

const bookingColumns = `
	id, client_id, helper_id, title, description, type, specialty,
	scheduled_at, duration_min, status, payment_status,
	hourly_rate, total_cost, credits_reserved,
	issue, requirements, notes, resolution,
	client_rating, client_feedback,
	started_at, completed_at, actual_duration_min,
	created_at, updated_at
`

type CreateBookingInput struct {
	ClientID        int64
	HelperID        int64
	Title           string
	Description     string
	Type            string
	Specialty       *string
	ScheduledAt     time.Time
	DurationMinutes int
	HourlyRate      float64
	TotalCost       float64
	CreditsReserved int
	Issue           *string
	Requirements    *string
}

type BookingListFilter struct {
	ActorID   int64
	Role      string
	Status    string
	Timeframe string
	Offset    int
	Limit     int
}

type BookingRepository struct {
	db DBTX
}

func NewBookingRepository(db DBTX) *BookingRepository {
	return &BookingRepository{db: db}
}

func scanBooking(row pgx.Row) (*models.Booking, error) {
	var b models.Booking
	err := row.Scan(
		&b.ID,
		&b.ClientID,
		&b.HelperID,
		&b.Title,
		&b.Description,
		&b.Type,
		&b.Specialty,
		&b.ScheduledAt,
		&b.DurationMinutes,
		&b.Status,
		&b.PaymentStatus,
		&b.HourlyRate,
		&b.TotalCost,
		&b.CreditsReserved,
		&b.Issue,
		&b.Requirements,
		&b.Notes,
		&b.Resolution,
		&b.ClientRating,
		&b.ClientFeedback,
		&b.StartedAt,
		&b.CompletedAt,
		&b.ActualDurationMinutes,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookingRepository) Create(
	ctx context.Context,
	input CreateBookingInput,
) (*models.Booking, error) {
	query := fmt.Sprintf(`
		INSERT INTO bookings (client_id, helper_id, title, description, type, specialty,
			scheduled_at, duration_min, status, payment_status,
			hourly_rate, total_cost, credits_reserved, issue, requirements)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending', 'pending', $9, $10, $11, $12, $13)
		RETURNING %s
	`, bookingColumns)

	return scanBooking(r.db.QueryRow(
		ctx,
		query,
		input.ClientID,
		input.HelperID,
		input.Title,
		input.Description,
		input.Type,
		input.Specialty,
		input.ScheduledAt,
		input.DurationMinutes,
		input.HourlyRate,
		input.TotalCost,
		input.CreditsReserved,
		input.Issue,
		input.Requirements,
	))
}

func (r *BookingRepository) GetByID(ctx context.Context, bookingID int64) (*models.Booking, error) {
	query := fmt.Sprintf(`SELECT %s FROM bookings WHERE id = $1`, bookingColumns)
	return scanBooking(r.db.QueryRow(ctx, query, bookingID))
}

func (r *BookingRepository) GetByIDForUpdate(
	ctx context.Context,
	bookingID int64,
) (*models.Booking, error) {
	query := fmt.Sprintf(`SELECT %s FROM bookings WHERE id = $1 FOR UPDATE`, bookingColumns)
	return scanBooking(r.db.QueryRow(ctx, query, bookingID))
}

func (r *BookingRepository) List(
	ctx context.Context,
	filter BookingListFilter,
) ([]models.Booking, int, error) {
	actorColumn := "client_id"
	if filter.Role == models.RoleHelper {
		actorColumn = "helper_id"
	}

	args := []any{filter.ActorID}
	whereParts := []string{fmt.Sprintf("%s = $1", actorColumn)}

	if status := strings.TrimSpace(filter.Status); status != "" {
		args = append(args, status)
		whereParts = append(whereParts, fmt.Sprintf("status = $%d", len(args)))
	}

	switch strings.TrimSpace(filter.Timeframe) {
	case "upcoming":
		whereParts = append(
			whereParts,
			"(scheduled_at + (duration_min * INTERVAL '1 minute')) > NOW()",
		)
	case "past":
		whereParts = append(
			whereParts,
			"(scheduled_at + (duration_min * INTERVAL '1 minute')) <= NOW()",
		)
	}

	where := strings.Join(whereParts, " AND ")

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM bookings WHERE %s`, where)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf(`
		SELECT %s FROM bookings
		WHERE %s
		ORDER BY scheduled_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, bookingColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	bookings := make([]models.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return bookings, total, nil
}

// HasConflict reports whether the helper already has a booking whose
// half-open window [scheduled_at, scheduled_at+duration) overlaps the
// proposed one. Rejected and cancelled bookings do not block the slot;
// in-progress ones still occupy their scheduled window.
func (r *BookingRepository) HasConflict(
	ctx context.Context,
	helperID int64,
	requestedTime time.Time,
	durationMinutes int,
) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM bookings
			WHERE helper_id = $1
			  AND status IN ('pending', 'confirmed', 'in_progress')
			  AND scheduled_at < ($2::timestamptz + ($3::int * INTERVAL '1 minute'))
			  AND (scheduled_at + (duration_min * INTERVAL '1 minute')) > $2::timestamptz
		)
	`
	var hasConflict bool
	if err := r.db.QueryRow(ctx, query, helperID, requestedTime, durationMinutes).Scan(&hasConflict); err != nil {
		return false, err
	}
	return hasConflict, nil
}

// Confirm flips a pending booking to confirmed and marks it paid in one
// guarded statement. pgx.ErrNoRows means the booking left pending underneath
// the caller.
func (r *BookingRepository) Confirm(ctx context.Context, bookingID int64) (*models.Booking, error) {
	query := fmt.Sprintf(`
		UPDATE bookings
		SET status = 'confirmed', payment_status = 'paid', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING %s
	`, bookingColumns)
	return scanBooking(r.db.QueryRow(ctx, query, bookingID))
}

func (r *BookingRepository) Reject(
	ctx context.Context,
	bookingID int64,
	notes *string,
) (*models.Booking, error) {
	query := fmt.Sprintf(`
		UPDATE bookings
		SET status = 'rejected', notes = COALESCE($2, notes), updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING %s
	`, bookingColumns)
	return scanBooking(r.db.QueryRow(ctx, query, bookingID, notes))
}

func (r *BookingRepository) Start(
	ctx context.Context,
	bookingID int64,
	startedAt time.Time,
) (*models.Booking, error) {
	query := fmt.Sprintf(`
		UPDATE bookings
		SET status = 'in_progress', started_at = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'confirmed'
		RETURNING %s
	`, bookingColumns)
	return scanBooking(r.db.QueryRow(ctx, query, bookingID, startedAt))
}

func (r *BookingRepository) Complete(
	ctx context.Context,
	bookingID int64,
	completedAt time.Time,
	actualDurationMinutes int,
	resolution *string,
	notes *string,
) (*models.Booking, error) {
	query := fmt.Sprintf(`
		UPDATE bookings
		SET status = 'completed',
			completed_at = $2,
			actual_duration_min = $3,
			resolution = COALESCE($4, resolution),
			notes = COALESCE($5, notes),
			updated_at = NOW()
		WHERE id = $1 AND status = 'in_progress'
		RETURNING %s
	`, bookingColumns)
	return scanBooking(r.db.QueryRow(ctx, query, bookingID, completedAt, actualDurationMinutes, resolution, notes))
}

func (r *BookingRepository) Cancel(
	ctx context.Context,
	bookingID int64,
	currentStatus string,
	refunded bool,
	notes *string,
) (*models.Booking, error) {
	paymentStatus := models.PaymentStatusPending
	if refunded {
		paymentStatus = models.PaymentStatusRefunded
	}
	query := fmt.Sprintf(`
		UPDATE bookings
		SET status = 'cancelled', payment_status = $3, notes = COALESCE($4, notes), updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING %s
	`, bookingColumns)
	return scanBooking(r.db.QueryRow(ctx, query, bookingID, currentStatus, paymentStatus, notes))
}

func (r *BookingRepository) SetClientRating(
	ctx context.Context,
	bookingID int64,
	rating int,
	feedback *string,
) (*models.Booking, error) {
	query := fmt.Sprintf(`
		UPDATE bookings
		SET client_rating = $2, client_feedback = COALESCE($3, client_feedback), updated_at = NOW()
		WHERE id = $1 AND status = 'completed'
		RETURNING %s
	`, bookingColumns)
	return scanBooking(r.db.QueryRow(ctx, query, bookingID, rating, feedback))
}

// AverageClientRating recomputes the helper's rating from scratch over all
// completed, rated bookings. Full recomputation avoids incremental drift.
func (r *BookingRepository) AverageClientRating(
	ctx context.Context,
	helperID int64,
) (float64, int, error) {
	query := `
		SELECT COALESCE(AVG(client_rating), 0), COUNT(client_rating)
		FROM bookings
		WHERE helper_id = $1 AND status = 'completed' AND client_rating IS NOT NULL
	`
	var avg float64
	var count int
	if err := r.db.QueryRow(ctx, query, helperID).Scan(&avg, &count); err != nil {
		return 0, 0, err
	}
	return avg, count, nil
}
