package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the user-editable triage label of an order.
type Status string

const (
	StatusPending  Status = "Pendentes"
	StatusResolved Status = "Resolvido"
	StatusMissing  Status = "Extraviado"
)

// Statuses lists every accepted status in display order.
var Statuses = []Status{StatusPending, StatusResolved, StatusMissing}

// ParseStatus returns the status matching raw exactly (surrounding whitespace ignored).
func ParseStatus(raw string) (Status, error) {
	candidate := Status(strings.TrimSpace(raw))
	for _, status := range Statuses {
		if candidate == status {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", raw)
}

// Valid reports whether s is exactly one of the accepted statuses.
func (s Status) Valid() bool {
	for _, status := range Statuses {
		if s == status {
			return true
		}
	}
	return false
}

// Event labels accepted on import. Any other label drops the row.
const (
	EventReceivedAtBase = "Recebido na Base"
	EventCollected      = "Coletado"
)

// AllowedEvent reports whether label is one of the importable event labels.
func AllowedEvent(label string) bool {
	return label == EventReceivedAtBase || label == EventCollected
}

// CanonicalLayout is the storage timestamp format.
const CanonicalLayout = "2006-01-02 15:04:05"

// DisplayLayout is the human timestamp format used by display copies.
const DisplayLayout = "02/01/2006 15:04"

// Order is one shipment-tracking row.
type Order struct {
	ID               uuid.UUID       `json:"id"`
	Reference        string          `json:"reference"`
	MerchandiseValue decimal.Decimal `json:"merchandise_value"`
	LastEvent        string          `json:"last_event"`
	// LastEventAt holds the canonical timestamp, or the raw cell text when
	// the source value could not be normalized.
	LastEventAt     string     `json:"last_event_at"`
	Status          Status     `json:"status"`
	StatusUpdatedAt *time.Time `json:"status_updated_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// NewOrder creates an unpersisted order with the default status.
func NewOrder(reference, lastEvent, lastEventAt string, value decimal.Decimal) Order {
	if value.IsNegative() {
		value = decimal.Zero
	}
	return Order{
		Reference:        reference,
		MerchandiseValue: value,
		LastEvent:        lastEvent,
		LastEventAt:      lastEventAt,
		Status:           StatusPending,
	}
}

// Persisted reports whether storage has assigned an id.
func (o Order) Persisted() bool {
	return o.ID != uuid.Nil
}

// WithStatus returns a copy carrying the new status stamped at the given time.
func (o Order) WithStatus(status Status, at time.Time) Order {
	stamped := at
	o.Status = status
	o.StatusUpdatedAt = &stamped
	return o
}

// SameContent reports whether two orders carry the same imported values.
func (o Order) SameContent(other Order) bool {
	return o.Reference == other.Reference &&
		o.LastEvent == other.LastEvent &&
		o.LastEventAt == other.LastEventAt &&
		o.MerchandiseValue.Equal(other.MerchandiseValue) &&
		o.Status == other.Status
}

// DisplayOrder is the display copy of a persisted order.
type DisplayOrder struct {
	ID                   uuid.UUID `json:"id"`
	Referencia           string    `json:"referencia"`
	ValorMercadoria      string    `json:"valorMercadoria"`
	UltimaOcorrencia     string    `json:"ultimaOcorrencia"`
	DataUltimaOcorrencia string    `json:"dataUltimaOcorrencia"`
	Status               Status    `json:"status"`
	StatusUpdatedAt      *string   `json:"statusUpdatedAt"`
	CreatedAt            string    `json:"createdAt"`
}

// DisplayColumns are the display-field names, in export order.
var DisplayColumns = []string{
	"id",
	"referencia",
	"valorMercadoria",
	"ultimaOcorrencia",
	"dataUltimaOcorrencia",
	"status",
	"statusUpdatedAt",
	"createdAt",
}

// Values returns the display fields in DisplayColumns order.
func (d DisplayOrder) Values() []string {
	updated := ""
	if d.StatusUpdatedAt != nil {
		updated = *d.StatusUpdatedAt
	}
	return []string{
		d.ID.String(),
		d.Referencia,
		d.ValorMercadoria,
		d.UltimaOcorrencia,
		d.DataUltimaOcorrencia,
		string(d.Status),
		updated,
		d.CreatedAt,
	}
}

// ToDisplay translates a persisted order into its display copy, rendering
// timestamps in loc.
func (o Order) ToDisplay(loc *time.Location) DisplayOrder {
	if loc == nil {
		loc = time.UTC
	}
	display := DisplayOrder{
		ID:                   o.ID,
		Referencia:           o.Reference,
		ValorMercadoria:      o.MerchandiseValue.StringFixed(2),
		UltimaOcorrencia:     o.LastEvent,
		DataUltimaOcorrencia: displayTimestamp(o.LastEventAt, loc),
		Status:               o.Status,
	}
	if o.StatusUpdatedAt != nil {
		formatted := o.StatusUpdatedAt.In(loc).Format(DisplayLayout)
		display.StatusUpdatedAt = &formatted
	}
	if !o.CreatedAt.IsZero() {
		display.CreatedAt = o.CreatedAt.In(loc).Format(DisplayLayout)
	}
	return display
}

func displayTimestamp(canonical string, loc *time.Location) string {
	ts, err := time.ParseInLocation(CanonicalLayout, canonical, loc)
	if err != nil {
		return canonical
	}
	return ts.Format(DisplayLayout)
}
