// Package me отдаёт профиль текущего пользователя.
package me

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/userprefs/internal/http/middlewarectx"
	"github.com/magabrotheeeer/userprefs/internal/http/response"
	"github.com/magabrotheeeer/userprefs/internal/lib/sl"
	"github.com/magabrotheeeer/userprefs/internal/models"
	"github.com/magabrotheeeer/userprefs/internal/storage"
)

// Service описывает чтение профиля.
type Service interface {
	CurrentUser(ctx context.Context, userID string) (models.Profile, error)
}

// Handler обрабатывает GET /api/me.
type Handler struct {
	log  *slog.Logger
	user Service
}

// New создаёт Handler.
func New(log *slog.Logger, user Service) *Handler {
	return &Handler{log: log, user: user}
}

// ServeHTTP godoc
// @Summary Текущий пользователь
// @Tags User
// @Produce json
// @Success 200 {object} models.Profile
// @Failure 401 {object} response.ErrorResponse "Нет сессии"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /api/me [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.me"

	log := h.log.With(
		sl.Op(op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, ok := middlewarectx.IdentityFromContext(r.Context())
	if !ok {
		log.Error("identity missing in context")
		response.WriteError(w, r, http.StatusUnauthorized, middlewarectx.MsgAuthRequired)
		return
	}

	profile, err := h.user.CurrentUser(r.Context(), id.UserID)
	if errors.Is(err, storage.ErrUserNotFound) {
		log.Info("user from token not found", slog.String("user_id", id.UserID))
		response.WriteError(w, r, http.StatusUnauthorized, response.MsgUserNotFound)
		return
	}
	if err != nil {
		log.Error("failed to load user", sl.Err(err))
		response.WriteInternal(w, r)
		return
	}

	render.JSON(w, r, profile)
}
