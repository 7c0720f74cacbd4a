package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/geocoder89/sheetlens/internal/domain/upload"
	"github.com/geocoder89/sheetlens/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UploadsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUploadsRepo(pool *pgxpool.Pool, prom *observability.Prom) *UploadsRepo {
	return &UploadsRepo{
		pool: pool,
		prom: prom,
	}
}

func (r *UploadsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

// Create persists a decoded workbook as a single insert. Rows and
// column order travel as JSONB so the upload stays one document.
func (r *UploadsRepo) Create(ctx context.Context, u upload.Upload) error {
	rowsJSON, err := json.Marshal(u.Rows)

	if err != nil {
		return err
	}

	columnsJSON, err := json.Marshal(u.Columns)

	if err != nil {
		return err
	}

	return r.observe("uploads.create", func() error {
		_, e := r.pool.Exec(ctx,
			`INSERT INTO uploads (id, user_id, file_name, columns, rows, created_at)
			 VALUES ($1,$2,$3,$4,$5,$6)`,
			u.ID, u.UserID, u.FileName, columnsJSON, rowsJSON, u.CreatedAt,
		)
		return e
	})
}

// ListByUser returns metadata only, newest first. Row payloads never
// leave the database here; the count comes from jsonb_array_length.
func (r *UploadsRepo) ListByUser(ctx context.Context, userID string) (summaries []upload.Summary, err error) {
	var rows pgx.Rows

	err = r.observe("uploads.list_by_user", func() error {
		rows, err = r.pool.Query(ctx,
			`SELECT id, file_name, created_at, jsonb_array_length(rows)
			 FROM uploads
			 WHERE user_id = $1
			 ORDER BY created_at DESC, id DESC`,
			userID,
		)
		return err
	})

	if err != nil {
		return
	}

	defer rows.Close()

	summaries = make([]upload.Summary, 0)

	for rows.Next() {
		var s upload.Summary

		e := rows.Scan(&s.ID, &s.FileName, &s.UploadDate, &s.DataSize)

		if e != nil {
			err = e
			return
		}
		summaries = append(summaries, s)
	}

	e := rows.Err()

	if e != nil {
		err = e
		return
	}

	return
}

func (r *UploadsRepo) GetByID(ctx context.Context, id string) (upload.Upload, error) {
	var u upload.Upload
	var columnsJSON, rowsJSON []byte

	err := r.observe("uploads.get_by_id", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, user_id, file_name, columns, rows, created_at
			 FROM uploads
			 WHERE id = $1`,
			id,
		).Scan(&u.ID, &u.UserID, &u.FileName, &columnsJSON, &rowsJSON, &u.CreatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return upload.Upload{}, upload.ErrNotFound
		}

		return upload.Upload{}, err
	}

	err = json.Unmarshal(columnsJSON, &u.Columns)

	if err != nil {
		return upload.Upload{}, err
	}

	err = json.Unmarshal(rowsJSON, &u.Rows)

	if err != nil {
		return upload.Upload{}, err
	}

	return u, nil
}
