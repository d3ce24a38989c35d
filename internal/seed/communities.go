package seed

import (
	"context"
	"errors"
	"fmt"

	"communityhub/internal/store"
	"communityhub/pkg/types"
)

// SeedCommunities inserts the starter communities if they are missing. IDs
// are fixed so reruns are harmless.
//
// To generate new IDs: `go run ./cmd/communityhub nanoid`
func SeedCommunities(ctx context.Context, repo *store.CommunityRepository) error {
	communities := []types.Community{
		{
			ID:          "vQ2jP7T0dYhOq4kXZsW8mCeLbGniR1uA",
			Name:        "Riverside",
			Description: "Residents of the Riverside neighbourhood",
		},
		{
			ID:          "Hs5LwB3xKfTm9NpJcVgE2aQoZdUyM7rS",
			Name:        "Hillcrest",
			Description: "Residents of the Hillcrest neighbourhood",
		},
	}

	for _, community := range communities {
		_, err := repo.Community(ctx, community.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, types.ErrCommunityNotFound) {
			return fmt.Errorf("failed to check community %s: %w", community.ID, err)
		}

		c := community
		if err := repo.CreateCommunity(ctx, &c); err != nil {
			return fmt.Errorf("failed to create community %s: %w", community.Name, err)
		}
	}

	return nil
}
