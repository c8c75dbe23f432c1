package cmd

import (
	"fmt"

	"github.com/rpattn/consulta/internal/db"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded database migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := db.RunMigrations(cfg.Database, db.EmbeddedMigrator, log); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("migrations applied"))
		return nil
	},
}
