package ingestion

import (
	"math"
	"testing"
	"time"

	"github.com/rpattn/consulta/internal/domain"
)

func TestNormalizeSerialDates(t *testing.T) {
	normalizer := NewDateNormalizer(nil)

	cases := []struct {
		serial float64
		want   string
	}{
		{44927.5, "2023-01-01 12:00:00"},
		{44927, "2023-01-01 00:00:00"},
		{45292.75, "2024-01-01 18:00:00"},
		{45351.0104166667, "2024-02-29 00:15:00"},
	}

	for _, tc := range cases {
		got := normalizer.Normalize(NumberCell(tc.serial))
		if !got.Parsed() {
			t.Fatalf("serial %v not parsed", tc.serial)
		}
		if got.Value != tc.want {
			t.Fatalf("serial %v: expected %q, got %q", tc.serial, tc.want, got.Value)
		}
	}
}

func TestNormalizeSerialRoundTripWithinMinute(t *testing.T) {
	normalizer := NewDateNormalizer(nil)
	epoch := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

	for serial := 100.0; serial < 80000; serial += 997.37 {
		got := normalizer.Normalize(NumberCell(serial))
		if !got.Parsed() {
			t.Fatalf("serial %v not parsed", serial)
		}
		parsed, err := time.Parse(domain.CanonicalLayout, got.Value)
		if err != nil {
			t.Fatalf("canonical output %q does not parse: %v", got.Value, err)
		}
		back := parsed.Sub(epoch).Hours() / 24
		if math.Abs(back-serial)*24*60 > 1 {
			t.Fatalf("serial %v round-tripped to %v", serial, back)
		}
	}
}

func TestNormalizeTextPatterns(t *testing.T) {
	normalizer := NewDateNormalizer(nil)

	cases := map[string]string{
		"01/02/2023 08:15":          "2023-02-01 08:15:00",
		" 31/12/2023 23:59 ":        "2023-12-31 23:59:00",
		"2023-02-01":                "2023-02-01 00:00:00",
		"2023-02-01 10:11:12":       "2023-02-01 10:11:12",
		"2023-02-01T10:11:12Z":      "2023-02-01 10:11:12",
		"2023-02-01T10:11:12-03:00": "2023-02-01 13:11:12",
		"15/03/2024":                "2024-03-15 00:00:00",
	}

	for input, want := range cases {
		got := normalizer.Normalize(TextCell(input))
		if !got.Parsed() {
			t.Fatalf("%q not parsed", input)
		}
		if got.Value != want {
			t.Fatalf("%q: expected %q, got %q", input, want, got.Value)
		}
	}
}

func TestNormalizeUsesLocationForZonedInputs(t *testing.T) {
	saoPaulo := time.FixedZone("BRT", -3*60*60)
	normalizer := NewDateNormalizer(saoPaulo)

	got := normalizer.Normalize(TextCell("2023-02-01T13:11:12Z"))
	if got.Value != "2023-02-01 10:11:12" {
		t.Fatalf("expected conversion into the configured zone, got %q", got.Value)
	}

	wall := normalizer.Normalize(TextCell("01/02/2023 08:15"))
	if wall.Value != "2023-02-01 08:15:00" {
		t.Fatalf("zone-less input must keep its wall clock, got %q", wall.Value)
	}
}

func TestNormalizeMalformedInputsPassThrough(t *testing.T) {
	normalizer := NewDateNormalizer(nil)

	texts := []string{"ontem", "32/01/2023 10:00", "1/2/2023 8:15", "2023-13-01", "--", "  spaced out  "}
	for _, input := range texts {
		got := normalizer.Normalize(TextCell(input))
		if got.Parsed() {
			t.Fatalf("%q unexpectedly parsed as %q", input, got.Value)
		}
		if got.Value != TextCell(input).Text {
			t.Fatalf("%q: expected original value back, got %q", input, got.Value)
		}
	}

	numbers := []float64{-1, math.Inf(1), math.NaN(), 1e9}
	for _, input := range numbers {
		cell := Cell{Text: "raw", Number: input, Numeric: true}
		got := normalizer.Normalize(cell)
		if got.Parsed() {
			t.Fatalf("%v unexpectedly parsed as %q", input, got.Value)
		}
		if got.Value != "raw" {
			t.Fatalf("%v: expected original text back, got %q", input, got.Value)
		}
	}
}

func TestTextCellDetectsNumbers(t *testing.T) {
	if cell := TextCell(" 44927.5 "); !cell.Numeric || cell.Number != 44927.5 {
		t.Fatalf("expected numeric cell, got %+v", cell)
	}
	if cell := TextCell("01/02/2023 08:15"); cell.Numeric {
		t.Fatalf("date text must not be numeric: %+v", cell)
	}
	if cell := TextCell("NaN"); cell.Numeric {
		t.Fatalf("NaN must not be treated as a serial")
	}
}
