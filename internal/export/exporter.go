// Package export writes the current display list to a spreadsheet file.
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rpattn/consulta/internal/domain"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	DefaultFilePrefix = "ConsultaDafiti"
	DefaultSheetName  = "Consulta"
	// ContentType is the MIME type of the produced workbook.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	fileDateLayout = "02-01-2006"
	maxSheetName   = 31
)

// Exporter renders display orders into a single-sheet workbook.
type Exporter struct {
	prefix    string
	sheetName string
	now       func() time.Time
	logger    *zap.Logger
}

type Option func(*Exporter)

func WithFilePrefix(prefix string) Option {
	return func(e *Exporter) {
		if sanitized := sanitizeFileComponent(prefix); sanitized != "" {
			e.prefix = sanitized
		}
	}
}

func WithSheetName(name string) Option {
	return func(e *Exporter) {
		if name = strings.TrimSpace(name); name != "" {
			if len([]rune(name)) > maxSheetName {
				name = string([]rune(name)[:maxSheetName])
			}
			e.sheetName = name
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Exporter) {
		if now != nil {
			e.now = now
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(e *Exporter) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func NewExporter(opts ...Option) *Exporter {
	exporter := &Exporter{
		prefix:    DefaultFilePrefix,
		sheetName: DefaultSheetName,
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(exporter)
	}
	exporter.logger = exporter.logger.With(zap.String("component", "export"))
	return exporter
}

// FileName returns the download name for an export produced at the given time.
func (e *Exporter) FileName(at time.Time) string {
	return fmt.Sprintf("%s-%s.xlsx", e.prefix, at.Format(fileDateLayout))
}

// CurrentFileName is FileName at the exporter's clock.
func (e *Exporter) CurrentFileName() string {
	return e.FileName(e.now())
}

// Export writes a header row of display field names followed by one row per
// order. An empty list produces a header-only sheet.
func (e *Exporter) Export(w io.Writer, orders []domain.DisplayOrder) (int64, error) {
	f, err := e.build(orders)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	written, err := f.WriteTo(w)
	if err != nil {
		e.logger.Error("write workbook failed", zap.Error(err))
		return written, fmt.Errorf("write workbook: %w", err)
	}
	e.logger.Info("export written", zap.Int("rows", len(orders)), zap.Int64("bytes", written))
	return written, nil
}

// Save writes the export into dir under CurrentFileName and returns the final path.
// The file is written to a temporary name first and renamed once complete.
func (e *Exporter) Save(dir string, orders []domain.DisplayOrder) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return "", errors.New("export directory is not configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure export directory: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, e.prefix+"-*.xlsx.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp export file: %w", err)
	}
	tempPath := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = tempFile.Close()
			_ = os.Remove(tempPath)
		}
	}()

	if _, err := e.Export(tempFile, orders); err != nil {
		return "", err
	}
	if err := tempFile.Sync(); err != nil {
		return "", fmt.Errorf("sync export file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return "", fmt.Errorf("close export file: %w", err)
	}

	finalPath := filepath.Join(dir, e.CurrentFileName())
	if err := os.Rename(tempPath, finalPath); err != nil {
		return "", fmt.Errorf("promote export file: %w", err)
	}
	cleanup = false
	e.logger.Info("export saved", zap.String("path", finalPath))
	return finalPath, nil
}

func (e *Exporter) build(orders []domain.DisplayOrder) (*excelize.File, error) {
	f := excelize.NewFile()
	ok := false
	defer func() {
		if !ok {
			_ = f.Close()
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), e.sheetName); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	header := append([]string(nil), domain.DisplayColumns...)
	if err := f.SetSheetRow(e.sheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetRowStyle(e.sheetName, 1, 1, style)
	}

	for i, order := range orders {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("locate row %d: %w", i+2, err)
		}
		values := order.Values()
		if err := f.SetSheetRow(e.sheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("write order %s: %w", order.Referencia, err)
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err == nil {
		_ = f.SetColWidth(e.sheetName, "A", lastCol, 20)
	}

	ok = true
	return f, nil
}

// sanitizeFileComponent keeps letters, digits, '-' and '_'; other characters become '-'.
func sanitizeFileComponent(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	builder := strings.Builder{}
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			builder.WriteRune(r)
		case r >= '0' && r <= '9':
			builder.WriteRune(r)
		case r == '-' || r == '_':
			builder.WriteRune(r)
		default:
			builder.WriteRune('-')
		}
	}
	result := strings.Trim(builder.String(), "-")
	if result == "" {
		return "export"
	}
	return result
}
