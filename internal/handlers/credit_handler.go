package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/models"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/repository"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/services"
)

// expiringWindow is how far ahead the balance endpoint looks for credits
// about to expire.
const expiringWindow = 30 * 24 * time.Hour

type CreditHandler struct {
	service creditApplicationService
}

type creditApplicationService interface {
	Packages(ctx context.Context) ([]models.CreditPackage, error)
	Balance(ctx context.Context, userID int64) (int, error)
	ExpiringCredits(ctx context.Context, userID int64, within time.Duration) (int, error)
	Transactions(ctx context.Context, filter repository.TransactionListFilter) ([]models.CreditTransaction, int, error)
	Purchase(ctx context.Context, userID int64, input services.PurchaseInput) (*services.PurchaseResult, error)
}

func NewCreditHandler(service *services.CreditService) *CreditHandler {
	return &CreditHandler{service: service}
}

type purchaseRequest struct {
	PackageID int64  `json:"package_id"`
	CardToken string `json:"card_token"`
}

func (h *CreditHandler) Packages(c *fiber.Ctx) error {
	packages, err := h.service.Packages(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to fetch credit packages"})
	}

	return c.JSON(fiber.Map{"packages": packages})
}

func (h *CreditHandler) Balance(c *fiber.Ctx) error {
	userID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	balance, err := h.service.Balance(c.Context(), userID)
	if err != nil {
		return mapCreditError(c, err)
	}

	expiring, err := h.service.ExpiringCredits(c.Context(), userID, expiringWindow)
	if err != nil {
		return mapCreditError(c, err)
	}

	return c.JSON(fiber.Map{
		"balance":       balance,
		"expiring_soon": expiring,
	})
}

func (h *CreditHandler) Transactions(c *fiber.Ctx) error {
	userID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	page, limit, offset := parsePagination(c)
	transactions, total, err := h.service.Transactions(c.Context(), repository.TransactionListFilter{
		UserID: userID,
		Type:   strings.TrimSpace(c.Query("type")),
		Status: strings.TrimSpace(c.Query("status")),
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		return mapCreditError(c, err)
	}

	return c.JSON(fiber.Map{
		"transactions": transactions,
		"pagination":   buildPaginationMeta(page, limit, total),
	})
}

func (h *CreditHandler) Purchase(c *fiber.Ctx) error {
	userID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req purchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.PackageID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid package id"})
	}

	result, err := h.service.Purchase(c.Context(), userID, services.PurchaseInput{
		PackageID: req.PackageID,
		CardToken: req.CardToken,
	})
	if err != nil {
		return mapCreditError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

func mapCreditError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrInsufficientCredits):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Insufficient credits"})
	case errors.Is(err, services.ErrPaymentFailed):
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Credit package not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to process credit request"})
	}
}
