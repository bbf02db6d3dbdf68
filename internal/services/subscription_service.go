package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/billing"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/metrics"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/models"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/repository"
)

// SubscriptionService manages monthly memberships. Plans are role-scoped;
// billing a client plan also grants its monthly credits through the ledger,
// inside the same database transaction as the membership row.
type SubscriptionService struct {
	db       *pgxpool.Pool
	repo     *repository.SubscriptionRepository
	userRepo *repository.UserRepository
	gateway  PaymentGateway
	currency string
}

func NewSubscriptionService(
	db *pgxpool.Pool,
	repo *repository.SubscriptionRepository,
	userRepo *repository.UserRepository,
	gateway PaymentGateway,
	currency string,
) *SubscriptionService {
	return &SubscriptionService{
		db:       db,
		repo:     repo,
		userRepo: userRepo,
		gateway:  gateway,
		currency: currency,
	}
}

// SubscriptionDetail pairs a membership with its plan for read responses.
type SubscriptionDetail struct {
	Subscription *models.Subscription     `json:"subscription"`
	Plan         *models.SubscriptionPlan `json:"plan"`
}

func (s *SubscriptionService) Plans(ctx context.Context, role string) ([]models.SubscriptionPlan, error) {
	if role != models.RoleHelper {
		role = models.RoleClient
	}
	return s.repo.ListActivePlans(ctx, role)
}

// Current returns the user's non-expired membership, or nil when there is
// none. A lapsed period is expired lazily before the read.
func (s *SubscriptionService) Current(ctx context.Context, userID int64) (*SubscriptionDetail, error) {
	if err := s.repo.ExpireLapsed(ctx, userID); err != nil {
		return nil, err
	}

	sub, err := s.repo.GetOpenByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	plan, err := s.repo.GetPlanByID(ctx, sub.PlanID)
	if err != nil {
		return nil, err
	}
	return &SubscriptionDetail{Subscription: sub, Plan: plan}, nil
}

type SubscribeInput struct {
	PlanID    int64
	CardToken string
}

// Subscribe charges the plan price and opens a one-month membership. An
// existing membership is replaced, matching a plan change mid-period. For
// client plans the monthly credits land on the ledger in the same
// transaction as the membership row; a failed charge records a failed
// payment and changes nothing else.
func (s *SubscriptionService) Subscribe(
	ctx context.Context,
	userID int64,
	input SubscribeInput,
) (*SubscriptionDetail, error) {
	if input.CardToken == "" {
		return nil, fmt.Errorf("%w: card token is required", ErrInvalidInput)
	}
	if s.gateway == nil {
		return nil, fmt.Errorf("%w: payment gateway is not configured", ErrPaymentFailed)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	plan, err := s.repo.GetActivePlanByID(ctx, input.PlanID)
	if err != nil {
		return nil, err
	}
	if plan.Role != user.Role {
		return nil, fmt.Errorf("%w: plan %q is not available for role %q", ErrInvalidInput, plan.Code, user.Role)
	}

	description := fmt.Sprintf("%s plan - monthly billing", plan.Name)
	result, err := s.gateway.Charge(ctx, billing.ChargeInput{
		AmountCents: int64(math.Round(plan.Price * 100)),
		Currency:    s.currency,
		CardToken:   input.CardToken,
		Reference:   uuid.NewString(),
		Metadata: map[string]any{
			"user_id": userID,
			"plan_id": plan.ID,
		},
	})
	if err != nil {
		_, _ = s.repo.InsertPayment(ctx, repository.InsertSubscriptionPaymentInput{
			UserID:      userID,
			Amount:      plan.Price,
			Status:      models.SubscriptionPaymentFailed,
			Description: description,
		})
		return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}
	if !result.Succeeded {
		_, _ = s.repo.InsertPayment(ctx, repository.InsertSubscriptionPaymentInput{
			UserID:      userID,
			Amount:      plan.Price,
			Status:      models.SubscriptionPaymentFailed,
			PaymentID:   &result.PaymentID,
			Description: description,
		})
		return nil, fmt.Errorf("%w: %s", ErrPaymentFailed, result.FailureMessage)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txRepo := repository.NewSubscriptionRepository(tx)
	if err := txRepo.ExpireOpen(ctx, userID); err != nil {
		return nil, err
	}

	sub, err := txRepo.Create(ctx, repository.CreateSubscriptionInput{
		UserID:    userID,
		PlanID:    plan.ID,
		PeriodEnd: time.Now().UTC().AddDate(0, 1, 0),
	})
	if err != nil {
		return nil, err
	}

	if _, err := txRepo.InsertPayment(ctx, repository.InsertSubscriptionPaymentInput{
		SubscriptionID: &sub.ID,
		UserID:         userID,
		Amount:         plan.Price,
		Status:         models.SubscriptionPaymentPaid,
		PaymentID:      &result.PaymentID,
		Description:    description,
	}); err != nil {
		return nil, err
	}

	if plan.Role == models.RoleClient && plan.MonthlyCredits != nil && *plan.MonthlyCredits > 0 {
		if _, err := applyLedger(ctx, tx, LedgerInput{
			UserID:      userID,
			Type:        models.TransactionTypePurchase,
			Credits:     *plan.MonthlyCredits,
			Amount:      plan.Price,
			PaymentID:   &result.PaymentID,
			Description: fmt.Sprintf("Monthly credits - %s plan", plan.Name),
			ExpiresAt:   &sub.CurrentPeriodEnd,
		}); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	metrics.SubscriptionEvents.WithLabelValues("subscribed").Inc()
	return &SubscriptionDetail{Subscription: sub, Plan: plan}, nil
}

// Cancel keeps the membership usable until the end of the paid period and
// turns auto-renew off.
func (s *SubscriptionService) Cancel(ctx context.Context, userID int64, reason *string) (*models.Subscription, error) {
	if err := s.repo.ExpireLapsed(ctx, userID); err != nil {
		return nil, err
	}

	sub, err := s.repo.Cancel(ctx, userID, reason)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: no active subscription", ErrInvalidInput)
		}
		return nil, err
	}

	metrics.SubscriptionEvents.WithLabelValues("cancelled").Inc()
	return sub, nil
}

func (s *SubscriptionService) Reactivate(ctx context.Context, userID int64) (*models.Subscription, error) {
	sub, err := s.repo.Reactivate(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: no cancelled subscription within its paid period", ErrInvalidInput)
		}
		return nil, err
	}

	metrics.SubscriptionEvents.WithLabelValues("reactivated").Inc()
	return sub, nil
}

func (s *SubscriptionService) SetAutoRenew(ctx context.Context, userID int64, autoRenew bool) (*models.Subscription, error) {
	if err := s.repo.ExpireLapsed(ctx, userID); err != nil {
		return nil, err
	}

	sub, err := s.repo.SetAutoRenew(ctx, userID, autoRenew)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: no active subscription", ErrInvalidInput)
		}
		return nil, err
	}
	return sub, nil
}

func (s *SubscriptionService) Payments(
	ctx context.Context,
	userID int64,
	offset, limit int,
) ([]models.SubscriptionPayment, int, error) {
	return s.repo.ListPayments(ctx, userID, offset, limit)
}
