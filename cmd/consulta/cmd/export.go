package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	exportDays int
	exportOut  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the display window to ConsultaDafiti-DD-MM-YYYY.xlsx",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		application, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer application.Close()

		state, err := application.Reload(cmd.Context(), exportDays)
		if err != nil {
			return err
		}

		dir := exportOut
		if dir == "" {
			dir = cfg.Export.Directory
		}
		path, err := application.Exporter.Save(dir, state.Orders)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %d orders to %s\n", color.GreenString("exported"), len(state.Orders), path)
		return nil
	},
}

func init() {
	exportCmd.Flags().IntVar(&exportDays, "days", -1, "window length in days (default from display.window_days)")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output directory (default from export.directory)")
}
