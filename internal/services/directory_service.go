package services

import (
	"context"
	"sort"
	"strings"

	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/models"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/repository"
)

type helperLister interface {
	ListHelpers(ctx context.Context, filter repository.HelperListFilter) ([]models.User, int, error)
}

// DirectoryService ranks available helpers for a client's request. Listing
// already filters to active+approved accounts; scoring orders them by how
// well they fit the requested specialty and track record.
type DirectoryService struct {
	userRepo helperLister
}

func NewDirectoryService(userRepo helperLister) *DirectoryService {
	return &DirectoryService{userRepo: userRepo}
}

type RankedHelper struct {
	models.User
	MatchScore int `json:"match_score"`
}

func (s *DirectoryService) RecommendHelpers(
	ctx context.Context,
	specialty string,
	limit int,
) ([]RankedHelper, error) {
	helpers, _, err := s.userRepo.ListHelpers(ctx, repository.HelperListFilter{Limit: 200})
	if err != nil {
		return nil, err
	}

	ranked := make([]RankedHelper, 0, len(helpers))
	for _, helper := range helpers {
		ranked = append(ranked, RankedHelper{
			User:       helper,
			MatchScore: matchScore(specialty, &helper),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].MatchScore == ranked[j].MatchScore {
			return floatValue(ranked[i].Rating) > floatValue(ranked[j].Rating)
		}
		return ranked[i].MatchScore > ranked[j].MatchScore
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	return ranked, nil
}

func matchScore(specialty string, helper *models.User) int {
	score := 0

	if key := normalize(specialty); key != "" {
		for _, s := range sliceValue(helper.Specialties) {
			if normalize(s) == key {
				score += 50
				break
			}
		}
	}

	if floatValue(helper.Rating) > 4.0 {
		score += 25
	}
	if intValue(helper.ExperienceYears) > 3 {
		score += 15
	}
	if helper.TotalSessions > 10 {
		score += 10
	}

	return score
}

func normalize(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	value = strings.ReplaceAll(value, " ", "_")
	value = strings.ReplaceAll(value, "-", "_")
	return value
}

func sliceValue(values *[]string) []string {
	if values == nil {
		return nil
	}
	return *values
}

func floatValue(value *float64) float64 {
	if value == nil {
		return 0
	}
	return *value
}

func intValue(value *int) int {
	if value == nil {
		return 0
	}
	return *value
}
