package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestParseStatus(t *testing.T) {
	for _, status := range Statuses {
		parsed, err := ParseStatus(" " + string(status) + " ")
		if err != nil {
			t.Fatalf("expected %q to parse: %v", status, err)
		}
		if parsed != status {
			t.Fatalf("expected %q, got %q", status, parsed)
		}
	}

	for _, raw := range []string{"", "pendentes", "Pendente", "Entregue"} {
		if _, err := ParseStatus(raw); err == nil {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}

func TestStatusValidIsExact(t *testing.T) {
	for _, status := range Statuses {
		if !status.Valid() {
			t.Fatalf("expected %q to be valid", status)
		}
	}
	for _, raw := range []string{" Resolvido ", "Resolvido\n", "resolvido", ""} {
		if Status(raw).Valid() {
			t.Fatalf("expected %q to be invalid", raw)
		}
	}
}

func TestNewOrderDefaults(t *testing.T) {
	order := NewOrder("REF1", EventCollected, "2023-01-01 12:00:00", decimal.NewFromInt(-5))
	if order.Status != StatusPending {
		t.Fatalf("expected default status %q, got %q", StatusPending, order.Status)
	}
	if order.Persisted() {
		t.Fatalf("new order must not carry an id")
	}
	if !order.MerchandiseValue.IsZero() {
		t.Fatalf("negative value should default to zero, got %s", order.MerchandiseValue)
	}
	if order.StatusUpdatedAt != nil {
		t.Fatalf("status timestamp must be unset on creation")
	}
}

func TestWithStatusLeavesOriginalUntouched(t *testing.T) {
	original := NewOrder("REF1", EventCollected, "2023-01-01 12:00:00", decimal.Zero)
	at := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)

	updated := original.WithStatus(StatusResolved, at)

	if original.Status != StatusPending || original.StatusUpdatedAt != nil {
		t.Fatalf("original order mutated: %+v", original)
	}
	if updated.Status != StatusResolved {
		t.Fatalf("expected resolved status, got %q", updated.Status)
	}
	if updated.StatusUpdatedAt == nil || !updated.StatusUpdatedAt.Equal(at) {
		t.Fatalf("expected status timestamp %v, got %v", at, updated.StatusUpdatedAt)
	}
}

func TestToDisplayFormatsTimestamps(t *testing.T) {
	updated := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	order := Order{
		ID:               uuid.New(),
		Reference:        "REF1",
		MerchandiseValue: decimal.RequireFromString("10.5"),
		LastEvent:        EventCollected,
		LastEventAt:      "2023-01-01 12:00:00",
		Status:           StatusResolved,
		StatusUpdatedAt:  &updated,
		CreatedAt:        time.Date(2024, 2, 28, 8, 0, 0, 0, time.UTC),
	}

	display := order.ToDisplay(time.UTC)

	if display.DataUltimaOcorrencia != "01/01/2023 12:00" {
		t.Fatalf("unexpected event timestamp %q", display.DataUltimaOcorrencia)
	}
	if display.ValorMercadoria != "10.50" {
		t.Fatalf("unexpected value %q", display.ValorMercadoria)
	}
	if display.StatusUpdatedAt == nil || *display.StatusUpdatedAt != "01/03/2024 10:30" {
		t.Fatalf("unexpected status timestamp %v", display.StatusUpdatedAt)
	}
	if display.CreatedAt != "28/02/2024 08:00" {
		t.Fatalf("unexpected created at %q", display.CreatedAt)
	}
	if len(display.Values()) != len(DisplayColumns) {
		t.Fatalf("values and columns out of sync")
	}
}

func TestToDisplayLeavesStatusTimestampUnset(t *testing.T) {
	order := Order{ID: uuid.New(), Reference: "REF1", LastEventAt: "not a date", Status: StatusPending}

	display := order.ToDisplay(nil)

	if display.StatusUpdatedAt != nil {
		t.Fatalf("expected nil status timestamp, got %v", *display.StatusUpdatedAt)
	}
	if display.DataUltimaOcorrencia != "not a date" {
		t.Fatalf("unparseable timestamps should pass through, got %q", display.DataUltimaOcorrencia)
	}
}
