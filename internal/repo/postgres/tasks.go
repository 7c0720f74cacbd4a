package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/sheetlens/internal/domain/task"
	"github.com/geocoder89/sheetlens/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TasksRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewTasksRepo(pool *pgxpool.Pool, prom *observability.Prom) *TasksRepo {
	return &TasksRepo{
		pool: pool,
		prom: prom,
	}
}

func (r *TasksRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *TasksRepo) Create(ctx context.Context, t task.Task) (task.Task, error) {
	err := r.observe("tasks.create", func() error {
		_, e := r.pool.Exec(ctx,
			`INSERT INTO tasks (id, user_id, title, description, completed, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			t.ID, t.UserID, t.Title, t.Description, t.Completed, t.CreatedAt, t.UpdatedAt,
		)
		return e
	})

	if err != nil {
		return task.Task{}, err
	}

	return t, nil
}

func (r *TasksRepo) ListByUser(ctx context.Context, userID string) (tasks []task.Task, err error) {
	var rows pgx.Rows

	err = r.observe("tasks.list_by_user", func() error {
		rows, err = r.pool.Query(ctx,
			`SELECT id, user_id, title, description, completed, created_at, updated_at
			 FROM tasks
			 WHERE user_id = $1
			 ORDER BY created_at ASC, id ASC`,
			userID,
		)
		return err
	})

	if err != nil {
		return
	}

	defer rows.Close()

	tasks = make([]task.Task, 0)

	for rows.Next() {
		var t task.Task

		e := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Completed, &t.CreatedAt, &t.UpdatedAt)

		if e != nil {
			err = e
			return
		}
		tasks = append(tasks, t)
	}

	e := rows.Err()

	if e != nil {
		err = e
		return
	}

	return
}

func (r *TasksRepo) GetByID(ctx context.Context, id string) (task.Task, error) {
	var t task.Task

	err := r.observe("tasks.get_by_id", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, user_id, title, description, completed, created_at, updated_at
			 FROM tasks
			 WHERE id = $1`,
			id,
		).Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Completed, &t.CreatedAt, &t.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return task.Task{}, task.ErrNotFound
		}

		return task.Task{}, err
	}

	return t, nil
}

func (r *TasksRepo) Update(ctx context.Context, t task.Task) (task.Task, error) {
	t.UpdatedAt = time.Now().UTC()

	var tag pgconn.CommandTag

	err := r.observe("tasks.update", func() error {
		var e error
		tag, e = r.pool.Exec(ctx,
			`UPDATE tasks
			 SET title = $2, description = $3, completed = $4, updated_at = $5
			 WHERE id = $1`,
			t.ID, t.Title, t.Description, t.Completed, t.UpdatedAt,
		)
		return e
	})

	if err != nil {
		return task.Task{}, err
	}

	if tag.RowsAffected() == 0 {
		return task.Task{}, task.ErrNotFound
	}

	return t, nil
}

func (r *TasksRepo) Delete(ctx context.Context, id string) error {
	var tag pgconn.CommandTag

	err := r.observe("tasks.delete", func() error {
		var e error
		tag, e = r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
		return e
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return task.ErrNotFound
	}

	return nil
}
