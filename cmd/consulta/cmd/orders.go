package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rpattn/consulta/internal/domain"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var ordersDays int

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List orders created in the display window",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		application, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer application.Close()

		state, err := application.Reload(cmd.Context(), ordersDays)
		if err != nil {
			return err
		}
		return printOrders(cmd.OutOrStdout(), state.Orders)
	},
}

func printOrders(w io.Writer, orders []domain.DisplayOrder) error {
	if len(orders) == 0 {
		fmt.Fprintln(w, "no orders in the window")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tREFERÊNCIA\tVALOR\tOCORRÊNCIA\tDATA\tSTATUS\tALTERADO")
	for _, order := range orders {
		updated := "-"
		if order.StatusUpdatedAt != nil {
			updated = *order.StatusUpdatedAt
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			order.ID, order.Referencia, order.ValorMercadoria, order.UltimaOcorrencia,
			order.DataUltimaOcorrencia, colorStatus(order.Status), updated)
	}
	return tw.Flush()
}

func colorStatus(status domain.Status) string {
	switch status {
	case domain.StatusResolved:
		return color.GreenString(string(status))
	case domain.StatusMissing:
		return color.RedString(string(status))
	default:
		return color.YellowString(string(status))
	}
}

func init() {
	ordersCmd.Flags().IntVar(&ordersDays, "days", -1, "window length in days (default from display.window_days)")
}
