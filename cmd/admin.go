package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"payskill/internal/config"
	"payskill/internal/logging"
	"payskill/internal/models"
	"payskill/internal/qrcheck"
	"payskill/internal/repository"
	"payskill/internal/tasks"

	"github.com/spf13/cobra"
)

func ensureIndexes(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logging.Setup(cfg.LogLevel)
	store, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Disconnect(context.Background())

	if err := store.EnsureIndexes(ctx); err != nil {
		return err
	}
	slog.Info("Indexes created", "database", cfg.MongoDBName)
	return nil
}

func evaluateCmd(configPath *string) *cobra.Command {
	var (
		status   string
		feedback string
	)
	cmd := &cobra.Command{
		Use:   "evaluate <completion-id>",
		Short: "Approve or reject a task completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			logger := logging.Setup(cfg.LogLevel)
			ctx := cmd.Context()
			store, err := connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Disconnect(context.Background())

			ledger := tasks.NewLedger(repository.NewCompletionRepository(store.Completions()), tasks.DefaultCatalog(), cfg.FirstTaskID, logger)
			c, err := ledger.UpdateStatus(ctx, args[0], models.CompletionStatus(status), feedback)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), c)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "New status: approved or rejected")
	cmd.Flags().StringVar(&feedback, "feedback", "", "Feedback shown to the user")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

type userSummary struct {
	ID         string    `json:"id"`
	Phone      string    `json:"phone"`
	LoginCount int       `json:"loginCount"`
	LastLogin  time.Time `json:"lastLogin"`
	CreatedAt  time.Time `json:"createdAt"`
}

func dbcheck(ctx context.Context, configPath string, out io.Writer) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logging.Setup(cfg.LogLevel)
	store, err := connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("database connection failed (%s): %w", cfg.RedactedMongoURI(), err)
	}
	defer store.Disconnect(context.Background())

	users := repository.NewUserRepository(store.Users())
	count, err := users.Count(ctx)
	if err != nil {
		return err
	}
	sample, err := users.Sample(ctx, 3)
	if err != nil {
		return err
	}
	collections, err := store.CollectionNames(ctx)
	if err != nil {
		return err
	}

	summaries := make([]userSummary, 0, len(sample))
	for i := range sample {
		u := &sample[i]
		summaries = append(summaries, userSummary{
			ID:         u.ID.Hex(),
			Phone:      u.Phone,
			LoginCount: u.LoginCount(),
			LastLogin:  u.LastLogin(),
			CreatedAt:  u.CreatedAt,
		})
	}
	return printJSON(out, map[string]any{
		"success": true,
		"message": "Database connection successful",
		"connectionDetails": map[string]any{
			"mongodbUri":           cfg.RedactedMongoURI(),
			"databaseName":         cfg.MongoDBName,
			"availableCollections": collections,
		},
		"data": map[string]any{
			"totalUsers":  count,
			"sampleUsers": summaries,
		},
	})
}

func qrSecretCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "qr-secret",
		Short: "Generate a QR_SECRET for signed task-2 links",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := qrcheck.GenerateSecret(config.Default().Auth.DesignatedPhone)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), secret)
			return nil
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
