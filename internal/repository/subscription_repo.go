package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/models"
)

const subscriptionPlanColumns = `
	id, code, role, name, description, price, monthly_credits,
	commission_percent, features, is_active, is_popular, created_at, updated_at
`

const subscriptionColumns = `
	id, user_id, plan_id, status, auto_renew, started_at,
	current_period_end, cancel_reason, cancelled_at, created_at, updated_at
`

type SubscriptionRepository struct {
	db DBTX
}

func NewSubscriptionRepository(db DBTX) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func scanSubscriptionPlan(row pgx.Row) (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	err := row.Scan(
		&plan.ID,
		&plan.Code,
		&plan.Role,
		&plan.Name,
		&plan.Description,
		&plan.Price,
		&plan.MonthlyCredits,
		&plan.CommissionPercent,
		&plan.Features,
		&plan.IsActive,
		&plan.IsPopular,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func scanSubscription(row pgx.Row) (*models.Subscription, error) {
	var sub models.Subscription
	err := row.Scan(
		&sub.ID,
		&sub.UserID,
		&sub.PlanID,
		&sub.Status,
		&sub.AutoRenew,
		&sub.StartedAt,
		&sub.CurrentPeriodEnd,
		&sub.CancelReason,
		&sub.CancelledAt,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepository) ListActivePlans(ctx context.Context, role string) ([]models.SubscriptionPlan, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM subscription_plans
		WHERE is_active AND role = $1
		ORDER BY price ASC
	`, subscriptionPlanColumns)

	rows, err := r.db.Query(ctx, query, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plans := make([]models.SubscriptionPlan, 0)
	for rows.Next() {
		plan, err := scanSubscriptionPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *plan)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return plans, nil
}

func (r *SubscriptionRepository) GetActivePlanByID(ctx context.Context, planID int64) (*models.SubscriptionPlan, error) {
	query := fmt.Sprintf(`SELECT %s FROM subscription_plans WHERE id = $1 AND is_active`, subscriptionPlanColumns)
	return scanSubscriptionPlan(r.db.QueryRow(ctx, query, planID))
}

func (r *SubscriptionRepository) GetPlanByID(ctx context.Context, planID int64) (*models.SubscriptionPlan, error) {
	query := fmt.Sprintf(`SELECT %s FROM subscription_plans WHERE id = $1`, subscriptionPlanColumns)
	return scanSubscriptionPlan(r.db.QueryRow(ctx, query, planID))
}

// GetOpenByUser returns the user's non-expired subscription, if any.
func (r *SubscriptionRepository) GetOpenByUser(ctx context.Context, userID int64) (*models.Subscription, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM subscriptions
		WHERE user_id = $1 AND status <> 'expired'
	`, subscriptionColumns)
	return scanSubscription(r.db.QueryRow(ctx, query, userID))
}

// ExpireLapsed marks the user's open subscription expired once its paid
// period has passed. There is no renewal worker; lapsing is applied lazily
// on the read and write paths.
func (r *SubscriptionRepository) ExpireLapsed(ctx context.Context, userID int64) error {
	query := `
		UPDATE subscriptions
		SET status = 'expired', updated_at = NOW()
		WHERE user_id = $1 AND status <> 'expired' AND current_period_end <= NOW()
	`
	_, err := r.db.Exec(ctx, query, userID)
	return err
}

// ExpireOpen closes whatever non-expired subscription the user holds, used
// when a new plan replaces the current one.
func (r *SubscriptionRepository) ExpireOpen(ctx context.Context, userID int64) error {
	query := `
		UPDATE subscriptions
		SET status = 'expired', updated_at = NOW()
		WHERE user_id = $1 AND status <> 'expired'
	`
	_, err := r.db.Exec(ctx, query, userID)
	return err
}

type CreateSubscriptionInput struct {
	UserID    int64
	PlanID    int64
	PeriodEnd time.Time
}

func (r *SubscriptionRepository) Create(ctx context.Context, input CreateSubscriptionInput) (*models.Subscription, error) {
	query := fmt.Sprintf(`
		INSERT INTO subscriptions (user_id, plan_id, status, auto_renew, started_at, current_period_end)
		VALUES ($1, $2, 'active', TRUE, NOW(), $3)
		RETURNING %s
	`, subscriptionColumns)
	return scanSubscription(r.db.QueryRow(ctx, query, input.UserID, input.PlanID, input.PeriodEnd))
}

func (r *SubscriptionRepository) Cancel(ctx context.Context, userID int64, reason *string) (*models.Subscription, error) {
	query := fmt.Sprintf(`
		UPDATE subscriptions
		SET status = 'cancelled', auto_renew = FALSE, cancel_reason = $2,
			cancelled_at = NOW(), updated_at = NOW()
		WHERE user_id = $1 AND status = 'active'
		RETURNING %s
	`, subscriptionColumns)
	return scanSubscription(r.db.QueryRow(ctx, query, userID, reason))
}

// Reactivate undoes a cancellation while the paid period still runs.
func (r *SubscriptionRepository) Reactivate(ctx context.Context, userID int64) (*models.Subscription, error) {
	query := fmt.Sprintf(`
		UPDATE subscriptions
		SET status = 'active', auto_renew = TRUE, cancel_reason = NULL,
			cancelled_at = NULL, updated_at = NOW()
		WHERE user_id = $1 AND status = 'cancelled' AND current_period_end > NOW()
		RETURNING %s
	`, subscriptionColumns)
	return scanSubscription(r.db.QueryRow(ctx, query, userID))
}

func (r *SubscriptionRepository) SetAutoRenew(ctx context.Context, userID int64, autoRenew bool) (*models.Subscription, error) {
	query := fmt.Sprintf(`
		UPDATE subscriptions
		SET auto_renew = $2, updated_at = NOW()
		WHERE user_id = $1 AND status = 'active'
		RETURNING %s
	`, subscriptionColumns)
	return scanSubscription(r.db.QueryRow(ctx, query, userID, autoRenew))
}

type InsertSubscriptionPaymentInput struct {
	SubscriptionID *int64
	UserID         int64
	Amount         float64
	Status         string
	PaymentID      *string
	Description    string
}

const subscriptionPaymentColumns = `
	id, subscription_id, user_id, amount, status, payment_id, description, created_at
`

func scanSubscriptionPayment(row pgx.Row) (*models.SubscriptionPayment, error) {
	var payment models.SubscriptionPayment
	err := row.Scan(
		&payment.ID,
		&payment.SubscriptionID,
		&payment.UserID,
		&payment.Amount,
		&payment.Status,
		&payment.PaymentID,
		&payment.Description,
		&payment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *SubscriptionRepository) InsertPayment(
	ctx context.Context,
	input InsertSubscriptionPaymentInput,
) (*models.SubscriptionPayment, error) {
	query := fmt.Sprintf(`
		INSERT INTO subscription_payments (subscription_id, user_id, amount, status, payment_id, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING %s
	`, subscriptionPaymentColumns)
	return scanSubscriptionPayment(r.db.QueryRow(
		ctx, query,
		input.SubscriptionID,
		input.UserID,
		input.Amount,
		input.Status,
		input.PaymentID,
		input.Description,
	))
}

func (r *SubscriptionRepository) ListPayments(
	ctx context.Context,
	userID int64,
	offset, limit int,
) ([]models.SubscriptionPayment, int, error) {
	var total int
	if err := r.db.QueryRow(
		ctx,
		"SELECT COUNT(*) FROM subscription_payments WHERE user_id = $1",
		userID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT %s FROM subscription_payments
		WHERE user_id = $1
		ORDER BY created_at DESC
		OFFSET $2 LIMIT $3
	`, subscriptionPaymentColumns)

	rows, err := r.db.Query(ctx, query, userID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	payments := make([]models.SubscriptionPayment, 0)
	for rows.Next() {
		payment, err := scanSubscriptionPayment(rows)
		if err != nil {
			return nil, 0, err
		}
		payments = append(payments, *payment)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return payments, total, nil
}
