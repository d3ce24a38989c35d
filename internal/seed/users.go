package seed

import (
	"context"
	"errors"
	"fmt"

	"communityhub/internal/store"
	"communityhub/internal/utils"
	"communityhub/pkg/types"

	"github.com/k0kubun/pp/v3"
	"golang.org/x/crypto/bcrypt"
)

// SeedUsers inserts the bootstrap admin and a demo member. Change the admin
// password after first login.
func SeedUsers(ctx context.Context, repo *store.UserRepository, bcryptCost int) error {
	users := []struct {
		user     types.User
		password string
	}{
		{
			user: types.User{
				ID:    "Yd8RkF2mXwQp6LsJvN4TbZcAoeHgU3iC",
				Name:  "Administrator",
				Email: "admin@communityhub.local",
				Type:  types.UserTypeAdmin,
			},
			password: "changeme123",
		},
		{
			user: types.User{
				ID:          "Bq1NzV5cJtLy7WmKfP9XgSdEhaRo2uT6",
				Name:        "Demo Member",
				Email:       "member@communityhub.local",
				Type:        types.UserTypeUser,
				CommunityID: utils.StringPtr("vQ2jP7T0dYhOq4kXZsW8mCeLbGniR1uA"),
			},
			password: "changeme123",
		},
	}

	for _, entry := range users {
		_, err := repo.User(ctx, entry.user.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, types.ErrUserNotFound) {
			return fmt.Errorf("failed to check user %s: %w", entry.user.ID, err)
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(entry.password), bcryptCost)
		if err != nil {
			return fmt.Errorf("failed to hash seed password: %w", err)
		}

		u := entry.user
		u.Password = string(hashed)
		if err := repo.CreateUser(ctx, &u); err != nil {
			return fmt.Errorf("failed to create user %s: %w", entry.user.Email, err)
		}

		u.Password = ""
		pp.Println(u.Email, u.Type)
	}

	return nil
}
