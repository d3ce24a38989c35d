package main

import (
	"context"
	"fmt"

	"communityhub/internal/db"
	"communityhub/internal/seed"
	"communityhub/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Seed the database with initial data",
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ctx := context.Background()

		logger := logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})

		if err := db.Migrate(cfg, logger); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		logrus.Info("Connected to database")

		userRepo := store.NewUserRepository(pool)
		communityRepo := store.NewCommunityRepository(pool)

		logrus.Info("Seeding communities...")
		if err := seed.SeedCommunities(ctx, communityRepo); err != nil {
			return fmt.Errorf("failed to seed communities: %w", err)
		}

		logrus.Info("Seeding users...")
		if err := seed.SeedUsers(ctx, userRepo, cfg.BcryptCost); err != nil {
			return fmt.Errorf("failed to seed users: %w", err)
		}

		logrus.Info("Seed completed successfully")

		return nil
	},
}
