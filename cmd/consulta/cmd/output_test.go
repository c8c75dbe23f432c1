package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rpattn/consulta/internal/domain"
	"github.com/rpattn/consulta/internal/ingestion"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

func TestPrintOrdersTable(t *testing.T) {
	color.NoColor = true
	stamp := "01/05/2024 09:00"
	orders := []domain.DisplayOrder{
		{ID: uuid.New(), Referencia: "REF1", ValorMercadoria: "10.00", UltimaOcorrencia: domain.EventCollected,
			DataUltimaOcorrencia: "01/01/2023 12:00", Status: domain.StatusResolved, StatusUpdatedAt: &stamp},
		{ID: uuid.New(), Referencia: "REF2", ValorMercadoria: "0.00", UltimaOcorrencia: domain.EventReceivedAtBase,
			DataUltimaOcorrencia: "02/01/2023 09:30", Status: domain.StatusPending},
	}

	var buf bytes.Buffer
	if err := printOrders(&buf, orders); err != nil {
		t.Fatalf("print: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 lines, got %q", buf.String())
	}
	if !strings.Contains(lines[1], "REF1") || !strings.Contains(lines[1], "Resolvido") || !strings.Contains(lines[1], stamp) {
		t.Fatalf("unexpected first line %q", lines[1])
	}
	if !strings.HasSuffix(strings.TrimSpace(lines[2]), "-") {
		t.Fatalf("missing status stamp should print a dash: %q", lines[2])
	}

	buf.Reset()
	if err := printOrders(&buf, nil); err != nil || !strings.Contains(buf.String(), "no orders") {
		t.Fatalf("unexpected empty output %q (%v)", buf.String(), err)
	}
}

func TestPrintSummaryListsParseIssues(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	printSummary(&buf, ingestion.Summary{
		FileName: "consulta.xlsx", Imported: 3,
		ParseIssues: []ingestion.ParseIssue{{Row: 4, Column: "F", Value: "ontem"}},
	})
	out := buf.String()
	if !strings.Contains(out, "imported:     3") || !strings.Contains(out, `row 4 column F: unrecognized date "ontem"`) {
		t.Fatalf("unexpected summary output %q", out)
	}
}

func TestPrintSummaryNamesBlockingRows(t *testing.T) {
	color.NoColor = true
	issue := ingestion.ParseIssue{Row: 7, Column: "F", Reference: "REF9", Value: "sem data"}
	var buf bytes.Buffer
	printSummary(&buf, ingestion.Summary{
		FileName:       "consulta.xlsx",
		ParseIssues:    []ingestion.ParseIssue{issue},
		BlockingIssues: []ingestion.ParseIssue{issue},
	})
	if out := buf.String(); !strings.Contains(out, `error: row 7 column F: unrecognized date "sem data" (REF9) blocked the batch`) {
		t.Fatalf("unexpected summary output %q", out)
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"serve", "migrate", "import", "orders", "set-status", "export"}
	for _, name := range want {
		found, _, err := rootCmd.Find([]string{name})
		if err != nil || found == rootCmd {
			t.Fatalf("command %q not registered", name)
		}
	}
}
