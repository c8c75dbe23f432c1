package ingestion

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrUnsupportedFormat is returned when an uploaded file is not supported.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrEmptyFile is returned for zero-byte uploads.
	ErrEmptyFile = errors.New("file is empty")
	// ErrNoSheets is returned for workbooks without worksheets.
	ErrNoSheets = errors.New("workbook has no sheets")

	byteOrderMark = []byte{0xEF, 0xBB, 0xBF}
)

// Sheet is the populated extent of a worksheet as raw cell text, row major.
// Rows[0] is spreadsheet row 1.
type Sheet struct {
	Name     string
	Rows     [][]string
	Date1904 bool
}

// Cell returns the raw text at a 1-based row and 0-based column, or "" outside the extent.
func (s Sheet) Cell(row, col int) string {
	if row < 1 || row > len(s.Rows) {
		return ""
	}
	cells := s.Rows[row-1]
	if col < 0 || col >= len(cells) {
		return ""
	}
	return cells[col]
}

// LastRow is the 1-based index of the last populated row.
func (s Sheet) LastRow() int {
	last := len(s.Rows)
	for last > 0 && rowEmpty(s.Rows[last-1]) {
		last--
	}
	return last
}

// ReadSheet decodes the first worksheet of a workbook, or a CSV file, by extension.
func ReadSheet(fileName string, payload []byte) (Sheet, error) {
	if len(payload) == 0 {
		return Sheet{}, ErrEmptyFile
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv":
		return parseCSV(payload)
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return parseExcel(payload)
	default:
		return Sheet{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

func parseCSV(payload []byte) (Sheet, error) {
	reader := bufio.NewReader(bytes.NewReader(payload))
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = -1
	csvReader.LazyQuotes = true

	records, err := csvReader.ReadAll()
	if err != nil {
		return Sheet{}, fmt.Errorf("failed to read csv: %w", err)
	}
	return Sheet{Name: "csv", Rows: records}, nil
}

func parseExcel(payload []byte) (Sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return Sheet{}, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Sheet{}, ErrNoSheets
	}

	// Raw values keep date serials numeric instead of applying number formats.
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return Sheet{}, fmt.Errorf("failed to read rows from xlsx: %w", err)
	}

	date1904 := false
	if props, propsErr := f.GetWorkbookProps(); propsErr == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	return Sheet{Name: sheets[0], Rows: rows, Date1904: date1904}, nil
}

func rowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
