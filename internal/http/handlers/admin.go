package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/geocoder89/sheetlens/internal/config"
	"github.com/geocoder89/sheetlens/internal/domain/user"
	"github.com/gin-gonic/gin"
)

type UserLister interface {
	List(ctx context.Context) ([]user.User, error)
}

type AdminHandler struct {
	users UserLister
}

func NewAdminHandler(users UserLister) *AdminHandler {
	return &AdminHandler{users: users}
}

func (h *AdminHandler) ListUsers(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	users, err := h.users.List(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not list users")
		return
	}

	out := make([]user.Public, 0, len(users))

	for _, u := range users {
		out = append(out, u.Public())
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": out,
		"count": len(out),
	})
}
