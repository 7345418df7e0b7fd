package app

import (
	"context"
	"errors"
	"fmt"

	"tradedesk/internal/config"
	"tradedesk/internal/repo"
)

// ResolveBusinessAndConfig picks the active business and loads its stored
// config, seeding a default config row if one is missing. It prefers the
// override, then the single-business DB. Unlike customers or work orders, a
// business is never created on the fly; setup is an explicit step.
func ResolveBusinessAndConfig(ctx context.Context, businessOverride string, r repo.Repo) (string, *config.Config, error) {
	businessID := businessOverride
	var businessName, primaryTrade string
	if businessID == "" {
		b, err := r.SingleBusiness(ctx)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return "", nil, fmt.Errorf("no business found; run setup first")
			}
			return "", nil, err
		}
		businessID = b.ID
		businessName = b.Name
		primaryTrade = b.PrimaryTrade
	} else {
		b, err := r.GetBusiness(ctx, businessID)
		if err != nil {
			return "", nil, err
		}
		businessName = b.Name
		primaryTrade = b.PrimaryTrade
	}

	cfg, err := r.GetBusinessConfig(ctx, businessID)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			return "", nil, err
		}
		cfg = config.Default(businessName, primaryTrade)
		if err := r.UpsertBusinessConfig(ctx, businessID, cfg); err != nil {
			return "", nil, fmt.Errorf("seed business config: %w", err)
		}
	}
	return businessID, cfg, nil
}
