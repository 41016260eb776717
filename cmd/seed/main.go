package main

import (
	"fmt"
	"os"
	"time"

	"github.com/communehq/commune/internal/config"
	"github.com/communehq/commune/internal/database"
	"github.com/communehq/commune/internal/logger"
	"github.com/communehq/commune/internal/seed"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	var randomSeed int64

	root := &cobra.Command{
		Use:          "seed",
		Short:        "Populate a development database",
		SilenceUsage: true,
	}
	root.PersistentFlags().Int64Var(&randomSeed, "seed", time.Now().UnixNano(), "random seed")

	sizes := seed.DevSizes
	dev := &cobra.Command{
		Use:   "dev",
		Short: "Seed development database with realistic data",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(db *gorm.DB) error {
				_, err := seed.NewSeeder(db, randomSeed).Seed(cmd.Context(), sizes)
				return err
			})
		},
	}
	dev.Flags().IntVar(&sizes.Users, "users", sizes.Users, "number of users")
	dev.Flags().IntVar(&sizes.Communities, "communities", sizes.Communities, "number of communities")
	dev.Flags().IntVar(&sizes.Posts, "posts", sizes.Posts, "number of posts")
	dev.Flags().IntVar(&sizes.Comments, "comments", sizes.Comments, "number of comments")
	dev.Flags().IntVar(&sizes.Reactions, "reactions", sizes.Reactions, "number of reaction attempts")

	test := &cobra.Command{
		Use:   "test",
		Short: "Seed fixed test accounts (alice, bob, charlie, diana, eve) with minimal data",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(db *gorm.DB) error {
				_, err := seed.NewSeeder(db, randomSeed).SeedTest(cmd.Context())
				return err
			})
		},
	}

	var force bool
	clean := &cobra.Command{
		Use:   "clean",
		Short: "Remove all data (use with caution)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("clean deletes every row; pass --force to continue")
			}
			return withDB(func(db *gorm.DB) error {
				return seed.NewSeeder(db, randomSeed).Clean(cmd.Context())
			})
		},
	}
	clean.Flags().BoolVar(&force, "force", false, "confirm deletion")

	root.AddCommand(dev, test, clean)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func withDB(fn func(db *gorm.DB) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logger.Initialize(logger.Options{Level: cfg.LogLevel}); err != nil {
		return err
	}
	defer logger.Close()

	if !cfg.IsDevelopment() {
		return fmt.Errorf("refusing to seed a %s database", cfg.Environment)
	}

	db, err := database.Open(database.Options{Driver: cfg.DatabaseDriver, URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		return err
	}
	if err := fn(db); err != nil {
		logger.Log.Error("Seeding failed", zap.Error(err))
		return err
	}
	logger.Log.Info("Done")
	return nil
}
