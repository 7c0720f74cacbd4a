package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/sheetlens/internal/config"
	"github.com/geocoder89/sheetlens/internal/domain/task"
	"github.com/geocoder89/sheetlens/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type TaskStore interface {
	Create(ctx context.Context, t task.Task) (task.Task, error)
	ListByUser(ctx context.Context, userID string) ([]task.Task, error)
	GetByID(ctx context.Context, id string) (task.Task, error)
	Update(ctx context.Context, t task.Task) (task.Task, error)
	Delete(ctx context.Context, id string) error
}

type TasksHandler struct {
	store TaskStore
}

func NewTasksHandler(store TaskStore) *TasksHandler {
	return &TasksHandler{store: store}
}

func (h *TasksHandler) Create(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	var req task.CreateTaskRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	t, err := h.store.Create(cctx, task.NewFromCreateRequest(userID, req))

	if err != nil {
		RespondInternal(ctx, "Could not create task")
		return
	}

	ctx.JSON(http.StatusCreated, t)
}

func (h *TasksHandler) List(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	tasks, err := h.store.ListByUser(cctx, userID)

	if err != nil {
		RespondInternal(ctx, "Could not list tasks")
		return
	}

	ctx.JSON(http.StatusOK, tasks)
}

func (h *TasksHandler) Update(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	var req task.UpdateTaskRequest

	if !BindJSON(ctx, &req) {
		return
	}

	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	t, err := h.ownedTask(cctx, ctx, id, userID)

	if err != nil {
		return
	}

	if req.Title != nil {
		t.Title = *req.Title
	}

	if req.Description != nil {
		t.Description = *req.Description
	}

	if req.Completed != nil {
		t.Completed = *req.Completed
	}

	updated, err := h.store.Update(cctx, t)

	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			RespondNotFound(ctx, "Task not found")
			return
		}

		RespondInternal(ctx, "Could not update task")
		return
	}

	ctx.JSON(http.StatusOK, updated)
}

func (h *TasksHandler) Delete(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	_, err := h.ownedTask(cctx, ctx, id, userID)

	if err != nil {
		return
	}

	err = h.store.Delete(cctx, id)

	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			RespondNotFound(ctx, "Task not found")
			return
		}

		RespondInternal(ctx, "Could not delete task")
		return
	}

	ctx.Status(http.StatusNoContent)
}

// ownedTask fetches a task and enforces ownership, writing the error
// response itself. Existence is checked before ownership, same rule as
// uploads.
func (h *TasksHandler) ownedTask(cctx context.Context, ctx *gin.Context, id, userID string) (task.Task, error) {
	t, err := h.store.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			RespondNotFound(ctx, "Task not found")
			return task.Task{}, err
		}

		RespondInternal(ctx, "Could not fetch task")
		return task.Task{}, err
	}

	if t.UserID != userID {
		RespondForbidden(ctx, "Not authorized to modify this task")
		return task.Task{}, task.ErrForbidden
	}

	return t, nil
}
