package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/models"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/repository"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/services"
)

type helperDirectoryRepository interface {
	ListHelpers(ctx context.Context, filter repository.HelperListFilter) ([]models.User, int, error)
	GetActiveHelper(ctx context.Context, id int64) (*models.User, error)
}

type helperRecommender interface {
	RecommendHelpers(ctx context.Context, specialty string, limit int) ([]services.RankedHelper, error)
}

type HelperHandler struct {
	userRepo  helperDirectoryRepository
	directory helperRecommender
}

func NewHelperHandler(userRepo helperDirectoryRepository, directory *services.DirectoryService) *HelperHandler {
	return &HelperHandler{userRepo: userRepo, directory: directory}
}

func (h *HelperHandler) ListHelpers(c *fiber.Ctx) error {
	page, limit, offset := parsePagination(c)

	minRating, err := parseNonNegativeFloat(c.Query("min_rating"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"error": "min_rating must be a valid non-negative number"})
	}

	helpers, total, err := h.userRepo.ListHelpers(c.Context(), repository.HelperListFilter{
		Specialty: strings.TrimSpace(c.Query("specialty")),
		MinRating: minRating,
		Offset:    offset,
		Limit:     limit,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to fetch helpers"})
	}

	return c.JSON(fiber.Map{
		"helpers":    helpers,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}

func (h *HelperHandler) GetRecommendedHelpers(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != models.RoleClient {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	limit := parsePositiveInt(c.Query("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	helpers, err := h.directory.RecommendHelpers(c.Context(), strings.TrimSpace(c.Query("specialty")), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to fetch recommended helpers"})
	}

	return c.JSON(fiber.Map{"helpers": helpers})
}

func (h *HelperHandler) GetHelperDetail(c *fiber.Ctx) error {
	helperID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || helperID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid helper id"})
	}

	helper, err := h.userRepo.GetActiveHelper(c.Context(), helperID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Helper not found"})
		}
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to fetch helper"})
	}

	return c.JSON(fiber.Map{"helper": helper})
}

func parsePositiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func parseNonNegativeFloat(raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value < 0 {
		return 0, errInvalidNumber
	}
	return value, nil
}

var errInvalidNumber = errors.New("invalid number")
