package ingestion

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rpattn/consulta/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ErrMissingColumn is returned when header resolution cannot find an expected column.
var ErrMissingColumn = errors.New("expected column header not found")

// Columns maps the four extracted fields to spreadsheet column letters.
type Columns struct {
	Reference   string
	Event       string
	EventAt     string
	Merchandise string
}

// DefaultColumns is the fixed layout of the carrier export.
func DefaultColumns() Columns {
	return Columns{Reference: "D", Event: "E", EventAt: "F", Merchandise: "Q"}
}

// HeaderNames are the header labels used when columns are resolved by header text.
type HeaderNames struct {
	Reference   string
	Event       string
	EventAt     string
	Merchandise string
}

// DefaultHeaderNames mirrors the carrier export header row.
func DefaultHeaderNames() HeaderNames {
	return HeaderNames{
		Reference:   "Referência",
		Event:       "Última Ocorrência",
		EventAt:     "Data Última Ocorrência",
		Merchandise: "Valor Mercadoria",
	}
}

// ParseIssue records a cell whose date could not be normalized.
type ParseIssue struct {
	Row       int    `json:"row"`
	Column    string `json:"column"`
	Reference string `json:"reference"`
	Value     string `json:"value"`
}

func (p ParseIssue) String() string {
	return fmt.Sprintf("row %d column %s: unrecognized date %q", p.Row, p.Column, p.Value)
}

type columnIndexes struct {
	reference   int
	event       int
	eventAt     int
	merchandise int
}

// Extractor scans sheets into candidate orders.
type Extractor struct {
	columns         Columns
	headers         HeaderNames
	resolveByHeader bool
	normalizer      *DateNormalizer
}

// ExtractorOption customizes an Extractor.
type ExtractorOption func(*Extractor)

// WithColumns overrides the positional column letters.
func WithColumns(columns Columns) ExtractorOption {
	return func(e *Extractor) {
		e.columns = columns
	}
}

// WithHeaderResolution resolves columns by header text once per sheet.
func WithHeaderResolution(names HeaderNames) ExtractorOption {
	return func(e *Extractor) {
		e.headers = names
		e.resolveByHeader = true
	}
}

// NewExtractor builds an extractor using normalizer for the event timestamp column.
func NewExtractor(normalizer *DateNormalizer, opts ...ExtractorOption) *Extractor {
	if normalizer == nil {
		normalizer = NewDateNormalizer(nil)
	}
	extractor := &Extractor{
		columns:    DefaultColumns(),
		headers:    DefaultHeaderNames(),
		normalizer: normalizer,
	}
	for _, opt := range opts {
		opt(extractor)
	}
	return extractor
}

// Extract reads every data row of sheet. Rows missing a reference, event label
// or event timestamp are skipped.
func (e *Extractor) Extract(sheet Sheet) ([]domain.Order, []ParseIssue, error) {
	indexes, err := e.resolveColumns(sheet)
	if err != nil {
		return nil, nil, err
	}

	normalizer := *e.normalizer
	normalizer.Use1904(sheet.Date1904)

	lastRow := sheet.LastRow()
	candidates := make([]domain.Order, 0, max(lastRow-1, 0))
	var issues []ParseIssue

	for row := 2; row <= lastRow; row++ {
		reference := strings.TrimSpace(sheet.Cell(row, indexes.reference))
		event := strings.TrimSpace(sheet.Cell(row, indexes.event))
		rawEventAt := sheet.Cell(row, indexes.eventAt)
		if reference == "" || event == "" || strings.TrimSpace(rawEventAt) == "" {
			continue
		}

		result := normalizer.Normalize(TextCell(rawEventAt))
		if !result.Parsed() {
			issues = append(issues, ParseIssue{
				Row:       row,
				Column:    columnLetter(indexes.eventAt),
				Reference: reference,
				Value:     result.Value,
			})
		}

		value := parseMerchandise(sheet.Cell(row, indexes.merchandise))
		candidates = append(candidates, domain.NewOrder(reference, event, result.Value, value))
	}

	return candidates, issues, nil
}

func (e *Extractor) resolveColumns(sheet Sheet) (columnIndexes, error) {
	if e.resolveByHeader {
		return resolveByHeader(sheet, e.headers)
	}

	var idx columnIndexes
	letters := []struct {
		name   string
		letter string
		target *int
	}{
		{"reference", e.columns.Reference, &idx.reference},
		{"event", e.columns.Event, &idx.event},
		{"event timestamp", e.columns.EventAt, &idx.eventAt},
		{"merchandise value", e.columns.Merchandise, &idx.merchandise},
	}
	for _, column := range letters {
		number, err := excelize.ColumnNameToNumber(strings.TrimSpace(column.letter))
		if err != nil {
			return columnIndexes{}, fmt.Errorf("invalid %s column %q: %w", column.name, column.letter, err)
		}
		*column.target = number - 1
	}
	return idx, nil
}

func resolveByHeader(sheet Sheet, names HeaderNames) (columnIndexes, error) {
	if len(sheet.Rows) == 0 {
		return columnIndexes{}, fmt.Errorf("%w: sheet %q has no header row", ErrMissingColumn, sheet.Name)
	}

	positions := make(map[string]int, len(sheet.Rows[0]))
	for col, label := range sheet.Rows[0] {
		key := normalizeHeader(label)
		if _, seen := positions[key]; !seen && key != "" {
			positions[key] = col
		}
	}

	var idx columnIndexes
	wanted := []struct {
		label  string
		target *int
	}{
		{names.Reference, &idx.reference},
		{names.Event, &idx.event},
		{names.EventAt, &idx.eventAt},
		{names.Merchandise, &idx.merchandise},
	}
	for _, column := range wanted {
		col, ok := positions[normalizeHeader(column.label)]
		if !ok {
			return columnIndexes{}, fmt.Errorf("%w: %q", ErrMissingColumn, column.label)
		}
		*column.target = col
	}
	return idx, nil
}

func normalizeHeader(label string) string {
	return strings.ToLower(strings.Join(strings.Fields(label), " "))
}

func parseMerchandise(raw string) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		// Carrier exports sometimes use a decimal comma.
		value, err = decimal.NewFromString(strings.ReplaceAll(strings.ReplaceAll(raw, ".", ""), ",", "."))
		if err != nil {
			return decimal.Zero
		}
	}
	if value.IsNegative() {
		return decimal.Zero
	}
	return value
}

func columnLetter(index int) string {
	name, err := excelize.ColumnNumberToName(index + 1)
	if err != nil {
		return fmt.Sprintf("#%d", index+1)
	}
	return name
}
