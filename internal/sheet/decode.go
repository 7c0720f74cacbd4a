package sheet

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/geocoder89/sheetlens/internal/domain/upload"
	"github.com/xuri/excelize/v2"
)

var (
	ErrMalformedWorkbook = errors.New("malformed workbook")
	ErrNoSheets          = errors.New("workbook has no sheets")
)

// MIME types accepted for uploaded workbooks (.xlsx and .xls).
const (
	MimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MimeXLS  = "application/vnd.ms-excel"
)

func AcceptedMime(mime string) bool {
	mime, _, _ = strings.Cut(mime, ";")

	switch strings.TrimSpace(mime) {
	case MimeXLSX, MimeXLS:
		return true
	}

	return false
}

// Decode reads the first sheet of a workbook. The header row supplies
// the map keys; every later row becomes one Row with empty cells
// omitted and all-empty rows dropped. Numeric-looking cells decode to
// float64, anything else stays a string (date cells arrive in their
// sheet-formatted string form).
func Decode(r io.Reader) (columns []string, rows []upload.Row, err error) {
	f, err := excelize.OpenReader(r)

	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedWorkbook, err)
	}

	defer func() {
		_ = f.Close()
	}()

	sheets := f.GetSheetList()

	if len(sheets) == 0 {
		return nil, nil, ErrNoSheets
	}

	// only the first sheet is ingested

	raw, err := f.GetRows(sheets[0])

	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedWorkbook, err)
	}

	if len(raw) == 0 {
		return []string{}, []upload.Row{}, nil
	}

	columns = headerKeys(raw[0])
	rows = make([]upload.Row, 0, len(raw)-1)

	for _, cells := range raw[1:] {
		row := make(upload.Row, len(columns))

		for i, cell := range cells {
			if i >= len(columns) || cell == "" {
				continue
			}

			row[columns[i]] = inferScalar(cell)
		}

		// rows with no data past the header are dropped
		if len(row) == 0 {
			continue
		}

		rows = append(rows, row)
	}

	return columns, rows, nil
}

// headerKeys normalizes the header row: blank cells get positional
// fallbacks and duplicates get numeric suffixes, so every column maps
// to a distinct key.
func headerKeys(header []string) []string {
	keys := make([]string, 0, len(header))
	seen := make(map[string]int, len(header))

	for i, h := range header {
		key := strings.TrimSpace(h)

		if key == "" {
			key = fmt.Sprintf("__EMPTY_%d", i)
		}

		if n, ok := seen[key]; ok {
			seen[key] = n + 1
			key = fmt.Sprintf("%s_%d", key, n)
		} else {
			seen[key] = 1
		}

		keys = append(keys, key)
	}

	return keys
}

func inferScalar(cell string) any {
	num, err := strconv.ParseFloat(cell, 64)

	if err == nil {
		return num
	}

	return cell
}
