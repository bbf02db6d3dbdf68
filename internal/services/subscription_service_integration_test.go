package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/billing"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/models"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/repository"
)

// acceptAllGateway stands in for the payment provider so membership flows
// can run against a real database without charging anything.
type acceptAllGateway struct {
	declineAll bool
	charges    int
}

func (g *acceptAllGateway) Charge(_ context.Context, input billing.ChargeInput) (*billing.ChargeResult, error) {
	g.charges++
	if g.declineAll {
		return &billing.ChargeResult{
			PaymentID:      fmt.Sprintf("chrg_test_%d", g.charges),
			FailureMessage: "card declined",
		}, nil
	}
	return &billing.ChargeResult{
		PaymentID: fmt.Sprintf("chrg_test_%d", g.charges),
		Succeeded: true,
	}, nil
}

func newIntegrationSubscriptionService(pool *pgxpool.Pool, gateway PaymentGateway) *SubscriptionService {
	return NewSubscriptionService(
		pool,
		repository.NewSubscriptionRepository(pool),
		repository.NewUserRepository(pool),
		gateway,
		"brl",
	)
}

func seededClientPlan(t *testing.T, ctx context.Context, service *SubscriptionService) models.SubscriptionPlan {
	t.Helper()

	plans, err := service.Plans(ctx, models.RoleClient)
	if err != nil {
		t.Fatalf("Plans: %v", err)
	}
	for _, plan := range plans {
		if plan.MonthlyCredits != nil && *plan.MonthlyCredits > 0 {
			return plan
		}
	}
	t.Fatalf("no seeded client plan with monthly credits")
	return models.SubscriptionPlan{}
}

func TestSubscriptionLifecycleGrantsAndKeepsPeriod(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	gateway := &acceptAllGateway{}
	service := newIntegrationSubscriptionService(pool, gateway)
	creditService := newIntegrationCreditService(pool)

	clientID := createTestAccount(t, ctx, pool, models.RoleClient, 0)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, clientID) })

	plan := seededClientPlan(t, ctx, service)

	detail, err := service.Subscribe(ctx, clientID, SubscribeInput{
		PlanID:    plan.ID,
		CardToken: "tok_test",
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if detail.Subscription.Status != models.SubscriptionStatusActive || !detail.Subscription.AutoRenew {
		t.Fatalf("expected active auto-renewing membership, got %+v", detail.Subscription)
	}
	if remaining := time.Until(detail.Subscription.CurrentPeriodEnd); remaining < 27*24*time.Hour {
		t.Fatalf("expected roughly one month of paid period, got %v", remaining)
	}

	// The monthly credits land on the ledger with the billing payment id.
	balance, err := creditService.Balance(ctx, clientID)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != *plan.MonthlyCredits {
		t.Fatalf("expected balance %d after subscribing, got %d", *plan.MonthlyCredits, balance)
	}
	assertLedgerMatchesBalance(t, ctx, creditService, clientID)

	payments, total, err := service.Payments(ctx, clientID, 0, 10)
	if err != nil {
		t.Fatalf("Payments: %v", err)
	}
	if total != 1 || len(payments) != 1 || payments[0].Status != models.SubscriptionPaymentPaid {
		t.Fatalf("expected one paid payment, got total=%d payments=%+v", total, payments)
	}

	reason := "switching providers"
	cancelled, err := service.Cancel(ctx, clientID, &reason)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != models.SubscriptionStatusCancelled || cancelled.AutoRenew {
		t.Fatalf("expected cancelled membership without auto-renew, got %+v", cancelled)
	}
	if cancelled.CancelReason == nil || *cancelled.CancelReason != reason {
		t.Fatalf("expected cancel reason recorded, got %v", cancelled.CancelReason)
	}

	// Still inside the paid period, so it shows up as current.
	current, err := service.Current(ctx, clientID)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if current == nil || current.Subscription.Status != models.SubscriptionStatusCancelled {
		t.Fatalf("expected cancelled-but-current membership, got %+v", current)
	}

	reactivated, err := service.Reactivate(ctx, clientID)
	if err != nil {
		t.Fatalf("Reactivate: %v", err)
	}
	if reactivated.Status != models.SubscriptionStatusActive || !reactivated.AutoRenew {
		t.Fatalf("expected reactivated membership, got %+v", reactivated)
	}
	if reactivated.CancelReason != nil || reactivated.CancelledAt != nil {
		t.Fatalf("expected cancellation fields cleared, got %+v", reactivated)
	}
}

func TestSubscribeReplacesCurrentMembership(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationSubscriptionService(pool, &acceptAllGateway{})

	clientID := createTestAccount(t, ctx, pool, models.RoleClient, 0)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, clientID) })

	plans, err := service.Plans(ctx, models.RoleClient)
	if err != nil {
		t.Fatalf("Plans: %v", err)
	}
	if len(plans) < 2 {
		t.Skipf("need at least two seeded client plans, got %d", len(plans))
	}

	if _, err := service.Subscribe(ctx, clientID, SubscribeInput{PlanID: plans[0].ID, CardToken: "tok_test"}); err != nil {
		t.Fatalf("first Subscribe: %v", err)
	}
	if _, err := service.Subscribe(ctx, clientID, SubscribeInput{PlanID: plans[1].ID, CardToken: "tok_test"}); err != nil {
		t.Fatalf("second Subscribe: %v", err)
	}

	current, err := service.Current(ctx, clientID)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if current == nil || current.Plan.ID != plans[1].ID {
		t.Fatalf("expected the second plan to be current, got %+v", current)
	}

	_, total, err := service.Payments(ctx, clientID, 0, 10)
	if err != nil {
		t.Fatalf("Payments: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected two payments on record, got %d", total)
	}
}

func TestSubscribeDeclinedChargeLeavesNoMembership(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationSubscriptionService(pool, &acceptAllGateway{declineAll: true})
	creditService := newIntegrationCreditService(pool)

	clientID := createTestAccount(t, ctx, pool, models.RoleClient, 0)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, clientID) })

	plan := seededClientPlan(t, ctx, service)

	_, err := service.Subscribe(ctx, clientID, SubscribeInput{PlanID: plan.ID, CardToken: "tok_declined"})
	if !errors.Is(err, ErrPaymentFailed) {
		t.Fatalf("expected ErrPaymentFailed, got %v", err)
	}

	current, err := service.Current(ctx, clientID)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if current != nil {
		t.Fatalf("expected no membership after a declined charge, got %+v", current)
	}

	balance, err := creditService.Balance(ctx, clientID)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("expected no credits granted, got %d", balance)
	}

	payments, total, err := service.Payments(ctx, clientID, 0, 10)
	if err != nil {
		t.Fatalf("Payments: %v", err)
	}
	if total != 1 || payments[0].Status != models.SubscriptionPaymentFailed {
		t.Fatalf("expected one failed payment on record, got total=%d payments=%+v", total, payments)
	}
}

func TestCancelWithoutMembershipFails(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationSubscriptionService(pool, &acceptAllGateway{})

	clientID := createTestAccount(t, ctx, pool, models.RoleClient, 0)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, clientID) })

	if _, err := service.Cancel(ctx, clientID, nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
