package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"adeptly/internal/config"
	"adeptly/internal/logger"
	"adeptly/internal/models"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:           "adeptly",
	Short:         "Engineering quiz training service",
	Long:          "Adeptly serves timed multiple-choice training sessions with per-topic experience, ranks and leaderboards.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command line. ctx is cancelled on shutdown signals.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to config.yaml (defaults and ADEPTLY_* env otherwise)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(initializeCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(diagramCmd)
	rootCmd.AddCommand(auditCmd)
}

// env is what every command needs before doing its work.
type env struct {
	cfg *config.Config
	log *logger.Logger
	db  *gorm.DB
}

func (e *env) close() {
	if sqlDB, err := e.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	e.log.Sync()
}

// bootstrap loads configuration, builds the logger and opens the migrated database.
func bootstrap(cmd *cobra.Command) (*env, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	config.GlobalConfig = cfg

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := models.Open(cfg, log)
	if err != nil {
		return nil, err
	}
	if err := models.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return &env{cfg: cfg, log: log, db: db}, nil
}

func printJSONReport(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
