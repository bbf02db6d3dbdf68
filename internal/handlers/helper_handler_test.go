package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/models"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/repository"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/services"
)

type stubHelperDirectoryRepo struct {
	helpers        []models.User
	total          int
	listFilter     repository.HelperListFilter
	detailHelper   *models.User
	detailHelperID int64
	detailErr      error
}

func (s *stubHelperDirectoryRepo) ListHelpers(_ context.Context, filter repository.HelperListFilter) ([]models.User, int, error) {
	s.listFilter = filter
	return s.helpers, s.total, nil
}

func (s *stubHelperDirectoryRepo) GetActiveHelper(_ context.Context, id int64) (*models.User, error) {
	s.detailHelperID = id
	if s.detailErr != nil {
		return nil, s.detailErr
	}
	return s.detailHelper, nil
}

type stubHelperRecommender struct {
	helpers   []services.RankedHelper
	specialty string
	limit     int
}

func (s *stubHelperRecommender) RecommendHelpers(_ context.Context, specialty string, limit int) ([]services.RankedHelper, error) {
	s.specialty = specialty
	s.limit = limit
	return s.helpers, nil
}

func TestListHelpersReturnsPaginationAndFilters(t *testing.T) {
	specialties := []string{"electrical"}
	rating := 4.7
	hourlyRate := 55.0

	userRepo := &stubHelperDirectoryRepo{
		helpers: []models.User{{
			ID:          91,
			Name:        "Helper Ana",
			Role:        models.RoleHelper,
			Specialties: &specialties,
			Rating:      &rating,
			HourlyRate:  &hourlyRate,
		}},
		total: 11,
	}
	handler := &HelperHandler{userRepo: userRepo, directory: &stubHelperRecommender{}}

	app := fiber.New()
	app.Get("/api/v1/helpers", handler.ListHelpers)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/helpers?specialty=electrical&min_rating=4.5&page=2&limit=5", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Helpers    []models.User         `json:"helpers"`
		Pagination models.PaginationMeta `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if userRepo.listFilter.Specialty != "electrical" || userRepo.listFilter.MinRating != 4.5 {
		t.Fatalf("unexpected filter: %+v", userRepo.listFilter)
	}
	if userRepo.listFilter.Offset != 5 || userRepo.listFilter.Limit != 5 {
		t.Fatalf("unexpected pagination in filter: %+v", userRepo.listFilter)
	}
	if len(body.Helpers) != 1 || body.Helpers[0].ID != 91 {
		t.Fatalf("unexpected helpers response: %+v", body.Helpers)
	}
	if body.Pagination.Total != 11 || body.Pagination.TotalPages != 3 || body.Pagination.Page != 2 {
		t.Fatalf("unexpected pagination: %+v", body.Pagination)
	}
}

func TestListHelpersRejectsMalformedMinRating(t *testing.T) {
	handler := &HelperHandler{userRepo: &stubHelperDirectoryRepo{}, directory: &stubHelperRecommender{}}

	app := fiber.New()
	app.Get("/api/v1/helpers", handler.ListHelpers)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/helpers?min_rating=-1", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGetRecommendedHelpersForwardsSpecialtyAndLimit(t *testing.T) {
	recommender := &stubHelperRecommender{
		helpers: []services.RankedHelper{{
			User:       models.User{ID: 91, Role: models.RoleHelper},
			MatchScore: 75,
		}},
	}
	handler := &HelperHandler{userRepo: &stubHelperDirectoryRepo{}, directory: recommender}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("role", models.RoleClient)
		c.Locals("user_id", "42")
		return c.Next()
	})
	app.Get("/api/v1/helpers/recommended", handler.GetRecommendedHelpers)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/helpers/recommended?specialty=plumbing&limit=3", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if recommender.specialty != "plumbing" || recommender.limit != 3 {
		t.Fatalf("expected specialty=plumbing limit=3, got specialty=%q limit=%d", recommender.specialty, recommender.limit)
	}

	var body struct {
		Helpers []services.RankedHelper `json:"helpers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(body.Helpers) != 1 || body.Helpers[0].MatchScore != 75 {
		t.Fatalf("unexpected recommended helpers: %+v", body.Helpers)
	}
}

func TestGetRecommendedHelpersForbiddenForHelpers(t *testing.T) {
	handler := &HelperHandler{userRepo: &stubHelperDirectoryRepo{}, directory: &stubHelperRecommender{}}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("role", models.RoleHelper)
		c.Locals("user_id", "7")
		return c.Next()
	})
	app.Get("/api/v1/helpers/recommended", handler.GetRecommendedHelpers)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/helpers/recommended", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestGetHelperDetailMapsMissingHelperToNotFound(t *testing.T) {
	userRepo := &stubHelperDirectoryRepo{detailErr: pgx.ErrNoRows}
	handler := &HelperHandler{userRepo: userRepo, directory: &stubHelperRecommender{}}

	app := fiber.New()
	app.Get("/api/v1/helpers/:id", handler.GetHelperDetail)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/helpers/404", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if userRepo.detailHelperID != 404 {
		t.Fatalf("expected lookup of helper 404, got %d", userRepo.detailHelperID)
	}
}
