package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/rpattn/consulta/internal/app"
	"github.com/rpattn/consulta/internal/config"
	"github.com/rpattn/consulta/internal/logger"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configDir string
	envFile   string
	memory    bool
	logLevel  string

	cfg config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "consulta",
	Short: "Import carrier shipment spreadsheets and triage them",
	Long: `consulta imports the carrier's shipment spreadsheet, keeps the rows whose
last event is "Recebido na Base" or "Coletado", stores them, and lets you
set a triage status per order and export the current list to xlsx.`,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("error:"), err)
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, _ []string) error {
	bootstrap, _ := zap.NewProduction()
	loaded, err := config.Load(configDir, envFile, bootstrap)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel != "" {
		loaded.Log.Level = logLevel
	}
	cfg = loaded

	log, err = logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	return nil
}

// openApp wires the components for commands that touch storage.
func openApp(ctx context.Context) (*app.App, error) {
	return app.New(ctx, cfg, log, app.Options{Memory: memory})
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", ".", "directory searched for config.yaml")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional .env file loaded before the environment")
	rootCmd.PersistentFlags().BoolVar(&memory, "memory", false, "use in-memory storage instead of Postgres")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level")

	rootCmd.AddCommand(serveCmd, migrateCmd, importCmd, ordersCmd, setStatusCmd, exportCmd)
}
