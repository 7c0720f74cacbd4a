package upload

import (
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("upload not found")
	ErrForbidden = errors.New("upload owned by another user")
)

// Row is one decoded spreadsheet row: column header -> cell value.
// Values are scalars (float64 for numeric cells, string otherwise).
type Row map[string]any

// Upload is one persisted workbook: its decoded rows plus ownership
// metadata. Immutable once created.

type Upload struct {
	ID       string `json:"id"`
	UserID   string `json:"userId"`
	FileName string `json:"fileName"`
	// Columns preserves sheet order; Row maps lose it.
	Columns   []string  `json:"columns"`
	Rows      []Row     `json:"rows"`
	CreatedAt time.Time `json:"createdAt"`
}

// Summary is the metadata-only view used by the history listing.

type Summary struct {
	ID         string    `json:"id"`
	FileName   string    `json:"fileName"`
	UploadDate time.Time `json:"uploadDate"`
	DataSize   int       `json:"dataSize"`
}

func (u Upload) Summary() Summary {
	return Summary{
		ID:         u.ID,
		FileName:   u.FileName,
		UploadDate: u.CreatedAt,
		DataSize:   len(u.Rows),
	}
}

// Preview returns at most the first n rows, in sheet order.

func (u Upload) Preview(n int) []Row {
	if n > len(u.Rows) {
		n = len(u.Rows)
	}

	return u.Rows[:n]
}
