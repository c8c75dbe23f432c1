package ingestion

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rpattn/consulta/internal/domain"

	"github.com/xuri/excelize/v2"
)

// sheetDateLayout is the fixed text pattern emitted by the carrier export.
const sheetDateLayout = "02/01/2006 15:04"

var (
	// Zone-less layouts are read as wall-clock time in the normalizer location.
	wallClockLayouts = []string{
		"2006-01-02 15:04:05",
		"2006-01-02 15:04:05.000",
		"2006-01-02 15:04",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02",
		"02/01/2006 15:04:05",
		"02/01/2006",
		"2006/01/02 15:04:05",
		"2006/01/02",
		"02-01-2006 15:04",
		"02-01-2006",
	}

	zonedLayouts = []string{
		time.RFC3339,
		time.RFC3339Nano,
		time.RFC1123Z,
		time.RFC1123,
	}

	maxSerialTime = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)
)

// Cell is a raw spreadsheet cell value.
type Cell struct {
	Text    string
	Number  float64
	Numeric bool
}

// TextCell builds a cell from raw text, treating finite decimal text as numeric.
func TextCell(raw string) Cell {
	trimmed := strings.TrimSpace(raw)
	cell := Cell{Text: raw}
	if trimmed == "" {
		return cell
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		cell.Number = f
		cell.Numeric = true
	}
	return cell
}

// NumberCell builds a numeric cell.
func NumberCell(value float64) Cell {
	return Cell{Text: strconv.FormatFloat(value, 'f', -1, 64), Number: value, Numeric: true}
}

// DateKind tags the outcome of a normalization attempt.
type DateKind int

const (
	DateUnparsed DateKind = iota
	DateNormalized
)

// DateResult is either a canonical timestamp or the untouched original value.
type DateResult struct {
	Kind  DateKind
	Value string
}

// Parsed reports whether Value holds a canonical timestamp.
func (r DateResult) Parsed() bool {
	return r.Kind == DateNormalized
}

// DateNormalizer converts heterogeneous cell dates into canonical timestamps.
type DateNormalizer struct {
	location *time.Location
	date1904 bool
}

// NewDateNormalizer returns a normalizer rendering timestamps in loc (UTC when nil).
func NewDateNormalizer(loc *time.Location) *DateNormalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &DateNormalizer{location: loc}
}

// Use1904 switches serial interpretation to the 1904 date system.
func (n *DateNormalizer) Use1904(enabled bool) {
	n.date1904 = enabled
}

// Normalize never fails: values it cannot interpret come back unparsed.
func (n *DateNormalizer) Normalize(cell Cell) DateResult {
	if cell.Numeric {
		return n.normalizeSerial(cell)
	}

	raw := strings.TrimSpace(cell.Text)
	if raw == "" {
		return DateResult{Kind: DateUnparsed, Value: cell.Text}
	}

	if ts, err := time.ParseInLocation(sheetDateLayout, raw, n.location); err == nil {
		return normalized(ts)
	}
	if ts, ok := n.parseGeneric(raw); ok {
		return normalized(ts)
	}
	return DateResult{Kind: DateUnparsed, Value: cell.Text}
}

func (n *DateNormalizer) normalizeSerial(cell Cell) DateResult {
	original := DateResult{Kind: DateUnparsed, Value: cell.Text}
	if math.IsNaN(cell.Number) || math.IsInf(cell.Number, 0) {
		return original
	}
	ts, err := excelize.ExcelDateToTime(cell.Number, n.date1904)
	if err != nil {
		return original
	}
	ts = ts.Round(time.Second)
	if ts.After(maxSerialTime) {
		return original
	}
	// Serials carry no zone; the UTC fields are the wall clock.
	return normalized(ts)
}

func (n *DateNormalizer) parseGeneric(raw string) (time.Time, bool) {
	for _, layout := range wallClockLayouts {
		if ts, err := time.ParseInLocation(layout, raw, n.location); err == nil {
			return ts, true
		}
	}
	for _, layout := range zonedLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.In(n.location), true
		}
	}
	return time.Time{}, false
}

func normalized(ts time.Time) DateResult {
	return DateResult{Kind: DateNormalized, Value: ts.Format(domain.CanonicalLayout)}
}
