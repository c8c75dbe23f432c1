package cmd

import (
	"fmt"

	"github.com/rpattn/consulta/internal/domain"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var setStatusCmd = &cobra.Command{
	Use:   "set-status <id> <status>",
	Short: "Set the triage status of an order (Pendentes, Resolvido, Extraviado)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid order id %q: %w", args[0], err)
		}
		status, err := domain.ParseStatus(args[1])
		if err != nil {
			return err
		}

		application, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer application.Close()

		at, err := application.Gateway.UpdateStatus(cmd.Context(), id, status)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s at %s\n", id, colorStatus(status), at.In(application.Location).Format(domain.DisplayLayout))
		return nil
	},
}
