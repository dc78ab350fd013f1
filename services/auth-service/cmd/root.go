package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/vasapolrittideah/portfolio-api/services/auth-service/internal/config"
	"github.com/vasapolrittideah/portfolio-api/services/auth-service/internal/repository"
)

// NewRootCmd creates the root command for the auth service CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth-service",
		Short: "Portfolio authentication and profile service",
		Long: `Serves registration, login, session refresh, password reset and
profile management for the portfolio dashboard.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewEnsureIndexesCmd())

	return cmd
}

// NewEnsureIndexesCmd creates the ensure-indexes subcommand.
func NewEnsureIndexesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-indexes",
		Short: "Create the user collection indexes and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			client, err := connectMongo(ctx, cfg.Mongo)
			if err != nil {
				return err
			}
			defer func() { _ = client.Disconnect(context.Background()) }()

			if err := repository.EnsureUserIndexes(ctx, client.Database(cfg.Mongo.Database)); err != nil {
				return fmt.Errorf("failed to ensure indexes: %w", err)
			}

			cmd.Println("indexes are up to date")
			return nil
		},
	}
}

// connectMongo opens a client and waits until the primary answers.
func connectMongo(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI).SetTimeout(cfg.Timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return client, nil
}
