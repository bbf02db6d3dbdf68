package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/models"
)

type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const userColumns = `
	id, name, email, password_hash, role, phone, is_active, is_approved,
	credits, specialties, experience_years, hourly_rate, rating,
	total_sessions, bio, created_at, updated_at
`

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.Phone,
		&user.IsActive,
		&user.IsApproved,
		&user.Credits,
		&user.Specialties,
		&user.ExperienceYears,
		&user.HourlyRate,
		&user.Rating,
		&user.TotalSessions,
		&user.Bio,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (name, email, password_hash, role, phone, is_approved,
			specialties, experience_years, hourly_rate, bio)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, is_active, credits, total_sessions, created_at, updated_at
	`
	return r.db.QueryRow(
		ctx,
		query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.Phone,
		user.IsApproved,
		user.Specialties,
		user.ExperienceYears,
		user.HourlyRate,
		user.Bio,
	).Scan(&user.ID, &user.IsActive, &user.Credits, &user.TotalSessions, &user.CreatedAt, &user.UpdatedAt)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1`, userColumns)
	return scanUser(r.db.QueryRow(ctx, query, email))
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	return scanUser(r.db.QueryRow(ctx, query, id))
}

// GetActiveHelper resolves a helper that can currently take bookings.
// Inactive, unapproved, or client accounts come back as pgx.ErrNoRows.
func (r *UserRepository) GetActiveHelper(ctx context.Context, id int64) (*models.User, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM users
		WHERE id = $1 AND role = 'helper' AND is_active AND is_approved
	`, userColumns)
	return scanUser(r.db.QueryRow(ctx, query, id))
}

type HelperListFilter struct {
	Specialty string
	MinRating float64
	Offset    int
	Limit     int
}

func (r *UserRepository) ListHelpers(
	ctx context.Context,
	filter HelperListFilter,
) ([]models.User, int, error) {
	args := []any{}
	whereParts := []string{"role = 'helper'", "is_active", "is_approved"}

	if specialty := strings.TrimSpace(filter.Specialty); specialty != "" {
		args = append(args, specialty)
		whereParts = append(whereParts, fmt.Sprintf("$%d = ANY(specialties)", len(args)))
	}
	if filter.MinRating > 0 {
		args = append(args, filter.MinRating)
		whereParts = append(whereParts, fmt.Sprintf("rating >= $%d", len(args)))
	}

	where := strings.Join(whereParts, " AND ")

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM users WHERE %s`, where)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`
		SELECT %s FROM users
		WHERE %s
		ORDER BY rating DESC NULLS LAST, total_sessions DESC, id ASC
		LIMIT $%d OFFSET $%d
	`, userColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	helpers := make([]models.User, 0)
	for rows.Next() {
		helper, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		helpers = append(helpers, *helper)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return helpers, total, nil
}

// AdjustCredits applies a signed delta to the cached balance and returns the
// new value. The guard keeps the balance non-negative in the same statement
// as the update, so concurrent debits cannot both pass against a stale read;
// pgx.ErrNoRows means the debit would overdraw (or the user does not exist).
func (r *UserRepository) AdjustCredits(ctx context.Context, userID int64, delta int) (int, error) {
	query := `
		UPDATE users
		SET credits = credits + $2, updated_at = NOW()
		WHERE id = $1 AND credits + $2 >= 0
		RETURNING credits
	`
	var balance int
	if err := r.db.QueryRow(ctx, query, userID, delta).Scan(&balance); err != nil {
		return 0, err
	}
	return balance, nil
}

func (r *UserRepository) GetCredits(ctx context.Context, userID int64) (int, error) {
	var credits int
	err := r.db.QueryRow(ctx, `SELECT credits FROM users WHERE id = $1`, userID).Scan(&credits)
	if err != nil {
		return 0, err
	}
	return credits, nil
}

func (r *UserRepository) UpdateRating(ctx context.Context, helperID int64, rating float64) error {
	_, err := r.db.Exec(
		ctx,
		`UPDATE users SET rating = $2, updated_at = NOW() WHERE id = $1`,
		helperID,
		rating,
	)
	return err
}

func (r *UserRepository) IncrementTotalSessions(ctx context.Context, helperID int64) error {
	_, err := r.db.Exec(
		ctx,
		`UPDATE users SET total_sessions = total_sessions + 1, updated_at = NOW() WHERE id = $1`,
		helperID,
	)
	return err
}

type UpdateProfileInput struct {
	Name       *string
	Phone      *string
	Bio        *string
	HourlyRate *float64
}

func (r *UserRepository) UpdateProfile(
	ctx context.Context,
	userID int64,
	input UpdateProfileInput,
) (*models.User, error) {
	query := fmt.Sprintf(`
		UPDATE users
		SET name = COALESCE($2, name),
			phone = COALESCE($3, phone),
			bio = COALESCE($4, bio),
			hourly_rate = COALESCE($5, hourly_rate),
			updated_at = NOW()
		WHERE id = $1
		RETURNING %s
	`, userColumns)
	return scanUser(r.db.QueryRow(ctx, query, userID, input.Name, input.Phone, input.Bio, input.HourlyRate))
}

func (r *UserRepository) Deactivate(ctx context.Context, userID int64) error {
	_, err := r.db.Exec(
		ctx,
		`UPDATE users SET is_active = FALSE, updated_at = NOW() WHERE id = $1`,
		userID,
	)
	return err
}
