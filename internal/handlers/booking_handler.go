package handlers

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/models"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/repository"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/services"
)

type BookingHandler struct {
	service bookingApplicationService
}

type bookingApplicationService interface {
	Schedule(ctx context.Context, clientID int64, input services.ScheduleInput) (*models.Booking, error)
	Respond(ctx context.Context, helperID, bookingID int64, accept bool, message *string) (*models.Booking, error)
	Start(ctx context.Context, helperID, bookingID int64) (*models.Booking, error)
	Complete(ctx context.Context, helperID, bookingID int64, resolution, notes *string) (*models.Booking, error)
	Cancel(ctx context.Context, actorID, bookingID int64, reason *string) (*models.Booking, error)
	Rate(ctx context.Context, clientID, bookingID int64, rating int, feedback *string) (*models.Booking, error)
	GetBooking(ctx context.Context, actorID, bookingID int64) (*models.Booking, error)
	ListBookings(ctx context.Context, filter repository.BookingListFilter) ([]models.Booking, int, error)
}

func NewBookingHandler(service *services.BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

var timeOfDayPattern = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)

type scheduleBookingRequest struct {
	HelperID        int64   `json:"helper_id"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	Type            string  `json:"type"`
	Specialty       *string `json:"specialty"`
	ScheduledDate   string  `json:"scheduled_date"`
	ScheduledTime   string  `json:"scheduled_time"`
	DurationMinutes int     `json:"duration_minutes"`
	Issue           *string `json:"issue"`
	Requirements    *string `json:"requirements"`
}

type respondBookingRequest struct {
	Accept  bool    `json:"accept"`
	Message *string `json:"message"`
}

type completeBookingRequest struct {
	Resolution *string `json:"resolution"`
	Notes      *string `json:"notes"`
}

type cancelBookingRequest struct {
	Reason *string `json:"reason"`
}

type rateBookingRequest struct {
	Rating   int     `json:"rating"`
	Feedback *string `json:"feedback"`
}

func (h *BookingHandler) Schedule(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != models.RoleClient {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	clientID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req scheduleBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if !timeOfDayPattern.MatchString(strings.TrimSpace(req.ScheduledTime)) {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"error": "scheduled_time must be in HH:MM format"})
	}
	scheduledAt, err := time.Parse(
		"2006-01-02 15:04",
		strings.TrimSpace(req.ScheduledDate)+" "+strings.TrimSpace(req.ScheduledTime),
	)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"error": "scheduled_date must be in YYYY-MM-DD format"})
	}

	booking, err := h.service.Schedule(c.Context(), clientID, services.ScheduleInput{
		HelperID:        req.HelperID,
		Title:           req.Title,
		Description:     req.Description,
		Type:            req.Type,
		Specialty:       req.Specialty,
		ScheduledAt:     scheduledAt.UTC(),
		DurationMinutes: req.DurationMinutes,
		Issue:           req.Issue,
		Requirements:    req.Requirements,
	})
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"booking": booking})
}

func (h *BookingHandler) List(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || (role != models.RoleClient && role != models.RoleHelper) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	actorID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	timeframe := strings.TrimSpace(c.Query("timeframe"))
	if timeframe != "" && timeframe != "upcoming" && timeframe != "past" {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"error": "timeframe must be upcoming or past"})
	}

	page, limit, offset := parsePagination(c)
	bookings, total, err := h.service.ListBookings(c.Context(), repository.BookingListFilter{
		ActorID:   actorID,
		Role:      role,
		Status:    strings.TrimSpace(c.Query("status")),
		Timeframe: timeframe,
		Offset:    offset,
		Limit:     limit,
	})
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.JSON(fiber.Map{
		"bookings":   bookings,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}

func (h *BookingHandler) Get(c *fiber.Ctx) error {
	actorID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	bookingID, err := parseBookingID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking id"})
	}

	booking, err := h.service.GetBooking(c.Context(), actorID, bookingID)
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.JSON(fiber.Map{"booking": booking})
}

func (h *BookingHandler) Respond(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != models.RoleHelper {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	helperID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	bookingID, err := parseBookingID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking id"})
	}

	var req respondBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	booking, err := h.service.Respond(c.Context(), helperID, bookingID, req.Accept, req.Message)
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.JSON(fiber.Map{"booking": booking})
}

func (h *BookingHandler) Start(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != models.RoleHelper {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	helperID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	bookingID, err := parseBookingID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking id"})
	}

	booking, err := h.service.Start(c.Context(), helperID, bookingID)
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.JSON(fiber.Map{"booking": booking})
}

func (h *BookingHandler) Complete(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != models.RoleHelper {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	helperID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	bookingID, err := parseBookingID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking id"})
	}

	var req completeBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	booking, err := h.service.Complete(c.Context(), helperID, bookingID, req.Resolution, req.Notes)
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.JSON(fiber.Map{"booking": booking})
}

func (h *BookingHandler) Cancel(c *fiber.Ctx) error {
	actorID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	bookingID, err := parseBookingID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking id"})
	}

	var req cancelBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	booking, err := h.service.Cancel(c.Context(), actorID, bookingID, req.Reason)
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.JSON(fiber.Map{"booking": booking})
}

func (h *BookingHandler) Rate(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != models.RoleClient {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	clientID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	bookingID, err := parseBookingID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking id"})
	}

	var req rateBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	booking, err := h.service.Rate(c.Context(), clientID, bookingID, req.Rating, req.Feedback)
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.JSON(fiber.Map{"booking": booking})
}

func parseBookingID(c *fiber.Ctx) (int64, error) {
	bookingID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || bookingID <= 0 {
		return 0, strconv.ErrSyntax
	}
	return bookingID, nil
}

func mapBookingError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, services.ErrInsufficientCredits):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrScheduleConflict):
		return c.Status(fiber.StatusConflict).
			JSON(fiber.Map{"error": "Requested time conflicts with another booking"})
	case errors.Is(err, services.ErrInvalidTransition):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrHelperUnavailable):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Helper not available"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Booking not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to process booking request"})
	}
}
