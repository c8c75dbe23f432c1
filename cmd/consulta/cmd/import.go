package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rpattn/consulta/internal/ingestion"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a shipment spreadsheet (.xlsx or .csv)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", args[0], err)
		}
		defer file.Close()

		application, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer application.Close()

		summary, err := application.Importer.Import(cmd.Context(), ingestion.Request{
			FileName: filepath.Base(args[0]),
			Data:     file,
		})
		printSummary(cmd.OutOrStdout(), summary)
		return err
	},
}

func printSummary(w io.Writer, summary ingestion.Summary) {
	fmt.Fprintf(w, "batch %s (%s)\n", summary.BatchID, summary.FileName)
	fmt.Fprintf(w, "  rows scanned: %d\n", summary.RowsScanned)
	fmt.Fprintf(w, "  candidates:   %d\n", summary.Candidates)
	fmt.Fprintf(w, "  dropped:      %d\n", summary.Dropped)
	fmt.Fprintf(w, "  duplicates:   %d\n", summary.Duplicates)
	fmt.Fprintf(w, "  imported:     %s\n", color.GreenString("%d", summary.Imported))
	for _, issue := range summary.ParseIssues {
		fmt.Fprintf(w, "  %s %s\n", color.YellowString("warning:"), issue)
	}
	for _, issue := range summary.BlockingIssues {
		fmt.Fprintf(w, "  %s %s (%s) blocked the batch\n", color.RedString("error:"), issue, issue.Reference)
	}
}
