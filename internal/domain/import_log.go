package domain

import (
	"time"

	"github.com/google/uuid"
)

// ImportLogKind classifies diagnostic entries recorded during an import.
type ImportLogKind string

const (
	ImportLogInput   ImportLogKind = "input"
	ImportLogParse   ImportLogKind = "parse"
	ImportLogStorage ImportLogKind = "storage"
)

// ImportLogEntry captures row level issues and failures that occur during an import.
type ImportLogEntry struct {
	ID        uuid.UUID     `json:"id"`
	BatchID   uuid.UUID     `json:"batch_id"`
	FileName  string        `json:"file_name"`
	RowNumber *int          `json:"row_number,omitempty"`
	Kind      ImportLogKind `json:"kind"`
	Message   string        `json:"message"`
	CreatedAt time.Time     `json:"created_at"`
}
