package services

import (
	"context"
	"testing"

	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/models"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/repository"
)

type stubHelperLister struct {
	helpers []models.User
}

func (s *stubHelperLister) ListHelpers(
	_ context.Context,
	_ repository.HelperListFilter,
) ([]models.User, int, error) {
	return s.helpers, len(s.helpers), nil
}

func TestRecommendHelpersSortsByScoreThenRating(t *testing.T) {
	service := NewDirectoryService(&stubHelperLister{
		helpers: []models.User{
			buildHelper(11, []string{"electrical", "electronic_systems"}, 4.8, 6, 30),
			buildHelper(12, []string{"hydraulics"}, 4.9, 4, 12),
			buildHelper(13, []string{"engine"}, 5.0, 10, 5),
		},
	})

	ranked, err := service.RecommendHelpers(context.Background(), "electrical", 3)
	if err != nil {
		t.Fatalf("RecommendHelpers: %v", err)
	}

	if got := len(ranked); got != 3 {
		t.Fatalf("expected 3 helpers, got %d", got)
	}
	if ranked[0].ID != 11 || ranked[0].MatchScore != 100 {
		t.Fatalf("expected helper 11 with score 100 first, got helper %d with score %d", ranked[0].ID, ranked[0].MatchScore)
	}
	if ranked[1].ID != 12 || ranked[1].MatchScore != 50 {
		t.Fatalf("expected helper 12 with score 50 second, got helper %d with score %d", ranked[1].ID, ranked[1].MatchScore)
	}
	if ranked[2].ID != 13 || ranked[2].MatchScore != 40 {
		t.Fatalf("expected helper 13 with score 40 third, got helper %d with score %d", ranked[2].ID, ranked[2].MatchScore)
	}
}

func TestRecommendHelpersAppliesLimit(t *testing.T) {
	service := NewDirectoryService(&stubHelperLister{
		helpers: []models.User{
			buildHelper(1, []string{"engine"}, 4.5, 5, 20),
			buildHelper(2, []string{"hydraulics"}, 4.9, 7, 20),
		},
	})

	ranked, err := service.RecommendHelpers(context.Background(), "engine", 1)
	if err != nil {
		t.Fatalf("RecommendHelpers: %v", err)
	}
	if got := len(ranked); got != 1 {
		t.Fatalf("expected 1 helper, got %d", got)
	}
	if ranked[0].ID != 1 {
		t.Fatalf("expected top helper to be 1, got %d", ranked[0].ID)
	}
}

func TestMatchScoreNormalizesSpecialtySpelling(t *testing.T) {
	helper := buildHelper(1, []string{"electronic_systems"}, 0, 0, 0)

	if got := matchScore("Electronic Systems", &helper); got != 50 {
		t.Fatalf("expected normalized specialty match score 50, got %d", got)
	}
	if got := matchScore("plumbing", &helper); got != 0 {
		t.Fatalf("expected no match score, got %d", got)
	}
}

func buildHelper(id int64, specs []string, rating float64, experience, sessions int) models.User {
	return models.User{
		ID:              id,
		Role:            models.RoleHelper,
		IsActive:        true,
		IsApproved:      true,
		Specialties:     &specs,
		Rating:          &rating,
		ExperienceYears: &experience,
		TotalSessions:   sessions,
	}
}
