package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/models"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/repository"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/services"
)

type stubCreditService struct {
	packagesResult []models.CreditPackage
	packagesErr    error
	balanceResult  int
	balanceErr     error
	expiringResult int
	expiringErr    error
	listResult     []models.CreditTransaction
	listTotal      int
	listErr        error
	purchaseResult *services.PurchaseResult
	purchaseErr    error

	lastUserID        int64
	lastPurchaseInput services.PurchaseInput
	lastListFilter    repository.TransactionListFilter
}

func (s *stubCreditService) Packages(_ context.Context) ([]models.CreditPackage, error) {
	return s.packagesResult, s.packagesErr
}

func (s *stubCreditService) Balance(_ context.Context, userID int64) (int, error) {
	s.lastUserID = userID
	return s.balanceResult, s.balanceErr
}

func (s *stubCreditService) ExpiringCredits(_ context.Context, userID int64, _ time.Duration) (int, error) {
	s.lastUserID = userID
	return s.expiringResult, s.expiringErr
}

func (s *stubCreditService) Transactions(_ context.Context, filter repository.TransactionListFilter) ([]models.CreditTransaction, int, error) {
	s.lastListFilter = filter
	return s.listResult, s.listTotal, s.listErr
}

func (s *stubCreditService) Purchase(_ context.Context, userID int64, input services.PurchaseInput) (*services.PurchaseResult, error) {
	s.lastUserID = userID
	s.lastPurchaseInput = input
	return s.purchaseResult, s.purchaseErr
}

func newCreditTestApp(service *stubCreditService, userID string) *fiber.App {
	handler := &CreditHandler{service: service}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("role", models.RoleClient)
		c.Locals("user_id", userID)
		return c.Next()
	})
	app.Get("/api/v1/credits/packages", handler.Packages)
	app.Get("/api/v1/credits/balance", handler.Balance)
	app.Get("/api/v1/credits/transactions", handler.Transactions)
	app.Post("/api/v1/credits/purchase", handler.Purchase)
	return app
}

func TestBalanceReturnsCachedAndExpiring(t *testing.T) {
	service := &stubCreditService{balanceResult: 27, expiringResult: 4}
	app := newCreditTestApp(service, "42")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/credits/balance", nil)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastUserID != 42 {
		t.Fatalf("expected user 42, got %d", service.lastUserID)
	}

	var body struct {
		Balance      int `json:"balance"`
		ExpiringSoon int `json:"expiring_soon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Balance != 27 || body.ExpiringSoon != 4 {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestTransactionsForwardsTypeFilter(t *testing.T) {
	service := &stubCreditService{
		listResult: []models.CreditTransaction{{ID: 1, Type: models.TransactionTypeUsage}},
		listTotal:  1,
	}
	app := newCreditTestApp(service, "42")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/credits/transactions?type=usage&page=1&limit=20", nil)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastListFilter.UserID != 42 || service.lastListFilter.Type != "usage" {
		t.Fatalf("unexpected filter: %+v", service.lastListFilter)
	}
	if service.lastListFilter.Limit != 20 || service.lastListFilter.Offset != 0 {
		t.Fatalf("unexpected pagination: %+v", service.lastListFilter)
	}
}

func TestPurchaseReturnsCreatedTransaction(t *testing.T) {
	service := &stubCreditService{
		purchaseResult: &services.PurchaseResult{
			Transaction: &models.CreditTransaction{
				ID:      5,
				Type:    models.TransactionTypePurchase,
				Status:  models.TransactionStatusCompleted,
				Credits: 30,
			},
			NewBalance: 30,
		},
	}
	app := newCreditTestApp(service, "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/credits/purchase", strings.NewReader(`{
		"package_id": 2,
		"card_token": "tokn_test_123"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastUserID != 42 {
		t.Fatalf("expected user 42, got %d", service.lastUserID)
	}
	if service.lastPurchaseInput.PackageID != 2 || service.lastPurchaseInput.CardToken != "tokn_test_123" {
		t.Fatalf("unexpected purchase input: %+v", service.lastPurchaseInput)
	}
}

func TestPurchaseMapsGatewayFailure(t *testing.T) {
	service := &stubCreditService{purchaseErr: services.ErrPaymentFailed}
	app := newCreditTestApp(service, "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/credits/purchase", strings.NewReader(`{
		"package_id": 2,
		"card_token": "tokn_test_123"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d", resp.StatusCode)
	}
}

func TestPurchaseMapsUnknownPackageToNotFound(t *testing.T) {
	service := &stubCreditService{purchaseErr: pgx.ErrNoRows}
	app := newCreditTestApp(service, "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/credits/purchase", strings.NewReader(`{
		"package_id": 99,
		"card_token": "tokn_test_123"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
