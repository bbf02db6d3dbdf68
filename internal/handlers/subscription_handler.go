package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/models"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/services"
)

type SubscriptionHandler struct {
	service subscriptionApplicationService
}

type subscriptionApplicationService interface {
	Plans(ctx context.Context, role string) ([]models.SubscriptionPlan, error)
	Current(ctx context.Context, userID int64) (*services.SubscriptionDetail, error)
	Subscribe(ctx context.Context, userID int64, input services.SubscribeInput) (*services.SubscriptionDetail, error)
	Cancel(ctx context.Context, userID int64, reason *string) (*models.Subscription, error)
	Reactivate(ctx context.Context, userID int64) (*models.Subscription, error)
	SetAutoRenew(ctx context.Context, userID int64, autoRenew bool) (*models.Subscription, error)
	Payments(ctx context.Context, userID int64, offset, limit int) ([]models.SubscriptionPayment, int, error)
}

func NewSubscriptionHandler(service *services.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{service: service}
}

type subscribeRequest struct {
	PlanID    int64  `json:"plan_id"`
	CardToken string `json:"card_token"`
}

type cancelSubscriptionRequest struct {
	Reason *string `json:"reason"`
}

type autoRenewRequest struct {
	AutoRenew bool `json:"auto_renew"`
}

func (h *SubscriptionHandler) Plans(c *fiber.Ctx) error {
	role, _ := c.Locals("role").(string)

	plans, err := h.service.Plans(c.Context(), role)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to fetch subscription plans"})
	}

	return c.JSON(fiber.Map{"plans": plans})
}

func (h *SubscriptionHandler) Current(c *fiber.Ctx) error {
	userID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	detail, err := h.service.Current(c.Context(), userID)
	if err != nil {
		return mapSubscriptionError(c, err)
	}
	if detail == nil {
		return c.JSON(fiber.Map{"subscription": nil})
	}

	return c.JSON(detail)
}

func (h *SubscriptionHandler) Subscribe(c *fiber.Ctx) error {
	userID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req subscribeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.PlanID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid plan id"})
	}

	detail, err := h.service.Subscribe(c.Context(), userID, services.SubscribeInput{
		PlanID:    req.PlanID,
		CardToken: req.CardToken,
	})
	if err != nil {
		return mapSubscriptionError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(detail)
}

func (h *SubscriptionHandler) Cancel(c *fiber.Ctx) error {
	userID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req cancelSubscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	sub, err := h.service.Cancel(c.Context(), userID, req.Reason)
	if err != nil {
		return mapSubscriptionError(c, err)
	}

	return c.JSON(fiber.Map{"subscription": sub})
}

func (h *SubscriptionHandler) Reactivate(c *fiber.Ctx) error {
	userID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	sub, err := h.service.Reactivate(c.Context(), userID)
	if err != nil {
		return mapSubscriptionError(c, err)
	}

	return c.JSON(fiber.Map{"subscription": sub})
}

func (h *SubscriptionHandler) AutoRenew(c *fiber.Ctx) error {
	userID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req autoRenewRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	sub, err := h.service.SetAutoRenew(c.Context(), userID, req.AutoRenew)
	if err != nil {
		return mapSubscriptionError(c, err)
	}

	return c.JSON(fiber.Map{"auto_renew": sub.AutoRenew})
}

func (h *SubscriptionHandler) Payments(c *fiber.Ctx) error {
	userID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	page, limit, offset := parsePagination(c)
	payments, total, err := h.service.Payments(c.Context(), userID, offset, limit)
	if err != nil {
		return mapSubscriptionError(c, err)
	}

	return c.JSON(fiber.Map{
		"payments":   payments,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}

func mapSubscriptionError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrPaymentFailed):
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Subscription plan not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to process subscription request"})
	}
}
