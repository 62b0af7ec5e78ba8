package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/signalhunt/market/internal/pricing"
	"github.com/signalhunt/market/pkg/models"
	"github.com/signalhunt/market/pkg/repository"
)

// ApplyExtraction merges an extraction into the profile's metadata and
// persists it. Non-empty extracted fields win over existing ones, list fields
// are unioned, and the suggested price is recomputed whenever the job title
// or buying stage is known. The completeness rule lives here and only here:
// a profile is complete once both a job title and a company are present.
func ApplyExtraction(ctx context.Context, profiles repository.ProfileRepo, profileID string, ex *Extraction, logger *slog.Logger) (*models.Profile, error) {
	if ex == nil {
		return nil, fmt.Errorf("extraction is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	p, err := profiles.GetProfile(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("profile %s: %w", profileID, repository.ErrNotFound)
	}

	if strings.TrimSpace(ex.JobTitle) != "" {
		p.Metadata.JobTitle = strings.TrimSpace(ex.JobTitle)
	}
	if strings.TrimSpace(ex.Company) != "" {
		p.Company = strings.TrimSpace(ex.Company)
	}
	if strings.TrimSpace(ex.BuyingStage) != "" {
		p.Metadata.BuyingStage = strings.ToLower(strings.TrimSpace(ex.BuyingStage))
	}
	if strings.TrimSpace(ex.Context) != "" {
		p.Metadata.Context = ex.Context
	}
	p.Metadata.TechStack = union(p.Metadata.TechStack, ex.TechStack)
	p.Metadata.Interests = union(p.Metadata.Interests, ex.Interests)

	if p.Metadata.JobTitle != "" {
		p.Metadata.SuggestedPrice = pricing.SuggestPrice(p.Metadata.JobTitle, p.Metadata.BuyingStage)
	}

	p.Metadata.ProfileCompleted = p.Metadata.JobTitle != "" && p.Company != ""

	if err := profiles.UpdateProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("persist profile: %w", err)
	}

	logger.Info("applied extraction",
		"profile_id", p.ID,
		"complete", p.Metadata.ProfileCompleted,
		"suggested_price", p.Metadata.SuggestedPrice,
	)

	return p, nil
}

func union(a, b []string) []string {
	if len(b) == 0 {
		return a
	}

	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		key := strings.ToLower(strings.TrimSpace(s))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, strings.TrimSpace(s))
	}
	return out
}
