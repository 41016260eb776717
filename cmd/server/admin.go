package main

import (
	"context"
	"fmt"

	"github.com/communehq/commune/internal/database"
	"github.com/communehq/commune/internal/logger"
	"github.com/communehq/commune/internal/repository"
	"github.com/communehq/commune/internal/search"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// withDatabase runs fn against a configured, open database and tears it down
// afterwards.
func withDatabase(fn func(db *gorm.DB) error) error {
	_, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Close()
	defer database.Close(db)
	return fn(db)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(func(db *gorm.DB) error {
				logger.Log.Info("Running migrations")
				if err := database.Migrate(db); err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				logger.Log.Info("All migrations completed")
				return nil
			})
		},
	}
}

func reindexCmd() *cobra.Command {
	var recreate bool
	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the search indices from the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Close()
			defer database.Close(db)

			if cfg.ElasticsearchURL == "" {
				return fmt.Errorf("ELASTICSEARCH_URL is not set")
			}
			client, err := search.NewClient(cfg.ElasticsearchURL)
			if err != nil {
				return err
			}
			return reindex(cmd.Context(), client, repository.NewStore(db), recreate)
		},
	}
	cmd.Flags().BoolVar(&recreate, "recreate", false, "drop and recreate the indices first")
	return cmd
}

func reindex(ctx context.Context, client *search.Client, store repository.Store, recreate bool) error {
	if recreate {
		if err := client.RecreateIndices(ctx); err != nil {
			return err
		}
	} else if err := client.InitializeIndices(ctx); err != nil {
		return err
	}
	n, err := client.Reindex(ctx, store)
	if err != nil {
		return err
	}
	logger.Log.Info("Reindex complete", zap.Int("documents", n))
	return nil
}

func promoteAdminCmd() *cobra.Command {
	var (
		email  string
		revoke bool
	)
	cmd := &cobra.Command{
		Use:   "promote-admin",
		Short: "Grant or revoke moderator privileges",
		Example: "  commune-server promote-admin --email user@example.com\n" +
			"  commune-server promote-admin --email user@example.com --revoke",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(func(db *gorm.DB) error {
				return setAdmin(cmd.Context(), repository.NewStore(db).Users(), email, !revoke, cmd)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address of the user")
	cmd.Flags().BoolVar(&revoke, "revoke", false, "revoke admin privileges instead of granting")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func setAdmin(ctx context.Context, users repository.UserRepository, email string, admin bool, out *cobra.Command) error {
	user, err := users.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("user not found: %s", email)
	}
	if user.IsAdmin == admin {
		if admin {
			out.Printf("User %s is already an admin\n", user.Username)
		} else {
			out.Printf("User %s is not an admin\n", user.Username)
		}
		return nil
	}

	user.IsAdmin = admin
	if err := users.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("failed to update %s: %w", user.Username, err)
	}
	if admin {
		out.Printf("Admin privileges granted to %s (%s)\n", user.Username, user.Email)
		out.Println("The user must log in again for the change to take effect")
	} else {
		out.Printf("Admin privileges revoked for %s (%s)\n", user.Username, user.Email)
	}
	return nil
}
