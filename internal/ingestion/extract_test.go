package ingestion

import (
	"errors"
	"strings"
	"testing"

	"github.com/rpattn/consulta/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// workbook builds an xlsx payload from cell address → value pairs on the first sheet.
func workbook(t *testing.T, cells map[string]any) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	for axis, value := range cells {
		if err := f.SetCellValue(sheet, axis, value); err != nil {
			t.Fatalf("set %s: %v", axis, err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func withHeader(cells map[string]any) map[string]any {
	header := map[string]any{
		"A1": "Pedido",
		"D1": "Referência",
		"E1": "Última Ocorrência",
		"F1": "Data Última Ocorrência",
		"Q1": "Valor Mercadoria",
	}
	for axis, value := range cells {
		header[axis] = value
	}
	return header
}

func readWorkbook(t *testing.T, cells map[string]any) Sheet {
	t.Helper()
	sheet, err := ReadSheet("consulta.xlsx", workbook(t, withHeader(cells)))
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	return sheet
}

func TestExtractReadsFixedColumns(t *testing.T) {
	sheet := readWorkbook(t, map[string]any{
		"D2": "  REF1 ", "E2": "Coletado", "F2": 44927.5, "Q2": 10,
		"D3": "REF2", "E3": "Em transporte", "F3": "01/02/2023 08:15",
	})

	candidates, issues, err := NewExtractor(nil).Extract(sheet)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("unexpected parse issues: %v", issues)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}

	first := candidates[0]
	if first.Reference != "REF1" || first.LastEvent != "Coletado" || first.LastEventAt != "2023-01-01 12:00:00" {
		t.Fatalf("unexpected first candidate %+v", first)
	}
	if !first.MerchandiseValue.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected value 10, got %s", first.MerchandiseValue)
	}
	if first.Status != domain.StatusPending || first.ID != uuid.Nil {
		t.Fatalf("candidates must start pending without id: %+v", first)
	}

	second := candidates[1]
	if second.LastEventAt != "2023-02-01 08:15:00" {
		t.Fatalf("unexpected text date %q", second.LastEventAt)
	}
	if !second.MerchandiseValue.IsZero() {
		t.Fatalf("missing value should default to zero, got %s", second.MerchandiseValue)
	}
}

func TestExtractSkipsRowsMissingRequiredCells(t *testing.T) {
	sheet := readWorkbook(t, map[string]any{
		"D2": "REF1", "E2": "Coletado", // no timestamp
		"E3": "Coletado", "F3": 44927.5, // no reference
		"D4": "REF3", "F4": 44927.5, // no event
		"D5": "   ", "E5": "Coletado", "F5": 44927.5, // blank reference
		"D6": "REF6", "E6": "Coletado", "F6": 44927.5, "Q6": "abc",
	})

	candidates, _, err := NewExtractor(nil).Extract(sheet)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(candidates) != 1 || candidates[0].Reference != "REF6" {
		t.Fatalf("expected only REF6, got %+v", candidates)
	}
	if !candidates[0].MerchandiseValue.IsZero() {
		t.Fatalf("non-numeric value should default to zero")
	}
	for _, candidate := range candidates {
		if candidate.Reference == "" || candidate.LastEventAt == "" || candidate.LastEvent == "" {
			t.Fatalf("candidate with empty required field: %+v", candidate)
		}
	}
}

func TestExtractReportsUnparsedDates(t *testing.T) {
	sheet := readWorkbook(t, map[string]any{
		"D2": "REF1", "E2": "Coletado", "F2": "amanhã cedo",
	})

	candidates, issues, err := NewExtractor(nil).Extract(sheet)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(candidates) != 1 || candidates[0].LastEventAt != "amanhã cedo" {
		t.Fatalf("unparsed date should pass through, got %+v", candidates)
	}
	if len(issues) != 1 || issues[0].Row != 2 || issues[0].Column != "F" {
		t.Fatalf("expected one issue at F2, got %+v", issues)
	}
}

func TestExtractHeaderOnlySheet(t *testing.T) {
	sheet := readWorkbook(t, nil)

	candidates, issues, err := NewExtractor(nil).Extract(sheet)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(candidates) != 0 || len(issues) != 0 {
		t.Fatalf("expected nothing from a header-only sheet")
	}
}

func TestExtractCustomColumns(t *testing.T) {
	sheet := Sheet{Rows: [][]string{
		{"ref", "event", "at", "value"},
		{"REF1", "Coletado", "44927.5", "12,50"},
	}}

	extractor := NewExtractor(nil, WithColumns(Columns{Reference: "A", Event: "B", EventAt: "C", Merchandise: "D"}))
	candidates, _, err := extractor.Extract(sheet)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(candidates) != 1 || !candidates[0].MerchandiseValue.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("unexpected candidates %+v", candidates)
	}
}

func TestExtractInvalidColumnLetter(t *testing.T) {
	extractor := NewExtractor(nil, WithColumns(Columns{Reference: "4", Event: "E", EventAt: "F", Merchandise: "Q"}))
	if _, _, err := extractor.Extract(Sheet{}); err == nil {
		t.Fatalf("expected invalid column error")
	}
}

func TestExtractResolvesColumnsByHeader(t *testing.T) {
	sheet := Sheet{Rows: [][]string{
		{"valor mercadoria", " Referência ", "Data  Última Ocorrência", "Última Ocorrência"},
		{"7", "REF1", "01/02/2023 08:15", "Recebido na Base"},
	}}

	candidates, _, err := NewExtractor(nil, WithHeaderResolution(DefaultHeaderNames())).Extract(sheet)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	got := candidates[0]
	if got.Reference != "REF1" || got.LastEvent != "Recebido na Base" || got.LastEventAt != "2023-02-01 08:15:00" {
		t.Fatalf("unexpected candidate %+v", got)
	}
	if !got.MerchandiseValue.Equal(decimal.NewFromInt(7)) {
		t.Fatalf("unexpected value %s", got.MerchandiseValue)
	}
}

func TestExtractHeaderResolutionFailsFast(t *testing.T) {
	sheet := Sheet{Rows: [][]string{{"Referência", "Última Ocorrência"}}}

	_, _, err := NewExtractor(nil, WithHeaderResolution(DefaultHeaderNames())).Extract(sheet)
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
	if !strings.Contains(err.Error(), "Data Última Ocorrência") {
		t.Fatalf("error should name the missing header: %v", err)
	}
}

func TestReadSheetFormats(t *testing.T) {
	if _, err := ReadSheet("legacy.xls", []byte("binary")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if _, err := ReadSheet("empty.xlsx", nil); !errors.Is(err, ErrEmptyFile) {
		t.Fatalf("expected ErrEmptyFile, got %v", err)
	}
	if _, err := ReadSheet("broken.xlsx", []byte("not a zip")); err == nil {
		t.Fatalf("expected error for corrupt workbook")
	}

	csvPayload := "\xEF\xBB\xBFa,b,c,Referência\nx,y,z,REF1\n"
	sheet, err := ReadSheet("export.CSV", []byte(csvPayload))
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if sheet.Cell(1, 0) != "a" || sheet.Cell(2, 3) != "REF1" {
		t.Fatalf("unexpected csv sheet %+v", sheet.Rows)
	}
	if sheet.Cell(9, 0) != "" || sheet.Cell(2, 40) != "" {
		t.Fatalf("cells outside the extent must be empty")
	}
}

func TestSheetLastRowIgnoresTrailingBlankRows(t *testing.T) {
	sheet := Sheet{Rows: [][]string{{"h"}, {"x"}, {"", " "}, {}}}
	if got := sheet.LastRow(); got != 2 {
		t.Fatalf("expected last row 2, got %d", got)
	}
}
