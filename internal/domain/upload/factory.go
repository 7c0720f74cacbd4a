package upload

import (
	"time"

	"github.com/google/uuid"
)

func New(userID, fileName string, columns []string, rows []Row) Upload {
	return Upload{
		ID:        uuid.NewString(),
		UserID:    userID,
		FileName:  fileName,
		Columns:   columns,
		Rows:      rows,
		CreatedAt: time.Now().UTC(),
	}
}
