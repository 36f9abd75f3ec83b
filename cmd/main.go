package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func init() {
	// Load environment variables from .env file.
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:          "payskill",
		Short:        "PaySkill task verification server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configPath)
		},
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("PAYSKILL_CONFIG"), "Config file path (YAML)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP server",
			RunE: func(cmd *cobra.Command, args []string) error {
				return serve(configPath)
			},
		},
		&cobra.Command{
			Use:   "indexes",
			Short: "Create the MongoDB indexes",
			RunE: func(cmd *cobra.Command, args []string) error {
				return ensureIndexes(cmd.Context(), configPath)
			},
		},
		evaluateCmd(&configPath),
		&cobra.Command{
			Use:   "dbcheck",
			Short: "Check the database connection and print a summary",
			RunE: func(cmd *cobra.Command, args []string) error {
				return dbcheck(cmd.Context(), configPath, cmd.OutOrStdout())
			},
		},
		qrSecretCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "payskill version %s\n", Version)
			},
		},
	)
	return cmd
}
