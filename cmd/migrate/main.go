package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/noticecast/pkg/config"
	"github.com/angelmondragon/noticecast/pkg/db"
	"github.com/angelmondragon/noticecast/pkg/logger"
	"github.com/angelmondragon/noticecast/pkg/migrate"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dir string

	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Manage the noticecast database schema with goose",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&dir, "dir", migrate.DefaultDir, "goose migrations directory")

	// Commands that do NOT require DB
	root.AddCommand(&cobra.Command{
		Use:   "create <name>",
		Short: "Create a new SQL migration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := migrate.CreateSQLMigration(dir, args[0])
			if err != nil {
				return fmt.Errorf("failed to create migration: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "created migration:", path)
			return nil
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Check migration file names and goose annotations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := migrate.ValidateDir(dir); err != nil {
				return fmt.Errorf("migration validation failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migration validation passed")
			return nil
		},
	})

	// Everything else needs DB
	for _, command := range []string{"up", "down", "status"} {
		command := command
		root.AddCommand(&cobra.Command{
			Use:   command,
			Short: "goose " + command,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDatabase(cmd.Context(), command, dir, func(ctx context.Context, sqlDB *sql.DB) error {
					if err := migrate.Run(ctx, sqlDB, dir, command); err != nil {
						return fmt.Errorf("goose %s failed: %w", command, err)
					}
					return nil
				})
			},
		})
	}
	root.AddCommand(&cobra.Command{
		Use:   "version <YYYYMMDDHHMMSS>",
		Short: "Migrate up or down to a target version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd.Context(), "version", dir, func(ctx context.Context, sqlDB *sql.DB) error {
				if err := migrate.MigrateToVersion(ctx, sqlDB, dir, args[0]); err != nil {
					return fmt.Errorf("goose version migrate failed: %w", err)
				}
				return nil
			})
		},
	})
	return root
}

func withDatabase(ctx context.Context, command, dir string, fn func(context.Context, *sql.DB) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	// bootstrap logger early (then re-init after config load)
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "resource not working: config", err)
		return err
	}

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{
		"env": cfg.App.Env,
		"cmd": command,
		"dir": dir,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "resource not working: database", err)
		return err
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		logg.Error(ctx, "resource not working: sql database", err)
		return err
	}

	logg.Info(ctx, "migrate ready")
	return fn(ctx, sqlDB)
}
