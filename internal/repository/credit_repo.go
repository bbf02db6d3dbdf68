package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/models"
)

const transactionColumns = `
	id, user_id, type, status, credits, amount,
	package_id, booking_id, payment_id,
	description, notes, processed_at, expires_at, created_at
`

type InsertTransactionInput struct {
	UserID      int64
	Type        string
	Status      string
	Credits     int
	Amount      float64
	PackageID   *int64
	BookingID   *int64
	PaymentID   *string
	Description string
	Notes       *string
	ProcessedAt *time.Time
	ExpiresAt   *time.Time
}

type TransactionListFilter struct {
	UserID int64
	Type   string
	Status string
	Offset int
	Limit  int
}

type CreditRepository struct {
	db DBTX
}

func NewCreditRepository(db DBTX) *CreditRepository {
	return &CreditRepository{db: db}
}

func scanTransaction(row pgx.Row) (*models.CreditTransaction, error) {
	var tx models.CreditTransaction
	err := row.Scan(
		&tx.ID,
		&tx.UserID,
		&tx.Type,
		&tx.Status,
		&tx.Credits,
		&tx.Amount,
		&tx.PackageID,
		&tx.BookingID,
		&tx.PaymentID,
		&tx.Description,
		&tx.Notes,
		&tx.ProcessedAt,
		&tx.ExpiresAt,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *CreditRepository) Insert(
	ctx context.Context,
	input InsertTransactionInput,
) (*models.CreditTransaction, error) {
	query := fmt.Sprintf(`
		INSERT INTO credit_transactions (user_id, type, status, credits, amount,
			package_id, booking_id, payment_id, description, notes, processed_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING %s
	`, transactionColumns)

	return scanTransaction(r.db.QueryRow(
		ctx,
		query,
		input.UserID,
		input.Type,
		input.Status,
		input.Credits,
		input.Amount,
		input.PackageID,
		input.BookingID,
		input.PaymentID,
		input.Description,
		input.Notes,
		input.ProcessedAt,
		input.ExpiresAt,
	))
}

// MarkProcessed moves a pending transaction to a terminal status. Ledger
// entries are never edited past that point; later corrections are new rows.
func (r *CreditRepository) MarkProcessed(
	ctx context.Context,
	transactionID int64,
	status string,
	paymentID *string,
	notes *string,
	expiresAt *time.Time,
) (*models.CreditTransaction, error) {
	query := fmt.Sprintf(`
		UPDATE credit_transactions
		SET status = $2,
			payment_id = COALESCE($3, payment_id),
			notes = COALESCE($4, notes),
			expires_at = COALESCE($5, expires_at),
			processed_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING %s
	`, transactionColumns)
	return scanTransaction(r.db.QueryRow(ctx, query, transactionID, status, paymentID, notes, expiresAt))
}

func (r *CreditRepository) ListByUser(
	ctx context.Context,
	filter TransactionListFilter,
) ([]models.CreditTransaction, int, error) {
	args := []any{filter.UserID}
	whereParts := []string{"user_id = $1"}

	if t := strings.TrimSpace(filter.Type); t != "" {
		args = append(args, t)
		whereParts = append(whereParts, fmt.Sprintf("type = $%d", len(args)))
	}
	if s := strings.TrimSpace(filter.Status); s != "" {
		args = append(args, s)
		whereParts = append(whereParts, fmt.Sprintf("status = $%d", len(args)))
	}

	where := strings.Join(whereParts, " AND ")

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM credit_transactions WHERE %s`, where)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf(`
		SELECT %s FROM credit_transactions
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, transactionColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	transactions := make([]models.CreditTransaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		transactions = append(transactions, *tx)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return transactions, total, nil
}

// SumCompleted derives the balance from the ledger itself. The cached
// users.credits column must always equal this sum; the reconciliation job
// that compares the two lives outside this service.
func (r *CreditRepository) SumCompleted(ctx context.Context, userID int64) (int, error) {
	query := `
		SELECT COALESCE(SUM(credits), 0)
		FROM credit_transactions
		WHERE user_id = $1 AND status = 'completed'
	`
	var sum int
	if err := r.db.QueryRow(ctx, query, userID).Scan(&sum); err != nil {
		return 0, err
	}
	return sum, nil
}

// SumExpiringWithin totals purchased credits whose validity window closes
// before the cutoff.
func (r *CreditRepository) SumExpiringWithin(
	ctx context.Context,
	userID int64,
	cutoff time.Time,
) (int, error) {
	query := `
		SELECT COALESCE(SUM(credits), 0)
		FROM credit_transactions
		WHERE user_id = $1 AND type = 'purchase' AND status = 'completed'
		  AND expires_at IS NOT NULL AND expires_at <= $2
	`
	var sum int
	if err := r.db.QueryRow(ctx, query, userID, cutoff).Scan(&sum); err != nil {
		return 0, err
	}
	return sum, nil
}
