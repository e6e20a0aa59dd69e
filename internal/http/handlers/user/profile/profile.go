// Package profile обновляет username и/или настройки текущего пользователя.
package profile

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
	"github.com/magabrotheeeer/userprefs/internal/services/auth"
	"github.com/magabrotheeeer/userprefs/internal/services/user"
	"github.com/magabrotheeeer/userprefs/internal/storage"
)

// MsgUpdated ответ на успешное обновление.
const MsgUpdated = "Profile updated"

// Request тело запроса. Поля неверного типа игнорируются.
type Request struct {
	Username    any `json:"username,omitempty" swaggertype:"string"`
	Preferences any `json:"preferences,omitempty" swaggertype:"object"`
}

// Response ответ на успешное обновление.
type Response struct {
	Message     string         `json:"message"`
	Username    string         `json:"username"`
	Preferences map[string]any `json:"preferences"`
}

// Service описывает обновление профиля.
type Service interface {
	UpdateProfile(ctx context.Context, userID string, update models.ProfileUpdate) (*user.UpdateResult, error)
}

// Handler обрабатывает POST /api/profile.
type Handler struct {
	log     *slog.Logger
	user    Service
	cookies middlewarectx.Cookies
}

// New создаёт Handler.
func New(log *slog.Logger, userService Service, cookies middlewarectx.Cookies) *Handler {
	return &Handler{
		log:     log,
		user:    userService,
		cookies: cookies,
	}
}

// ServeHTTP godoc
// @Summary Обновление профиля
// @Description Меняет username и/или настройки. При смене username выставляется новая cookie auth.
// @Tags User
// @Accept json
// @Produce json
// @Param request body Request true "Изменяемые поля"
// @Success 200 {object} Response
// @Failure 400 {object} response.ErrorResponse "Ошибка валидации или username занят"
// @Failure 401 {object} response.ErrorResponse "Нет сессии"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /api/profile [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.profile"

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

	var req Request
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Info("failed to decode request body", sl.Err(err))
		response.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	var update models.ProfileUpdate
	if name, ok := req.Username.(string); ok {
		update.Username = &name
	}
	if prefs, ok := req.Preferences.(map[string]any); ok {
		update.Preferences = prefs
	}

	res, err := h.user.UpdateProfile(r.Context(), id.UserID, update)
	if err != nil {
		var verr *auth.ValidationError
		switch {
		case errors.As(err, &verr):
			log.Info("validation failed", slog.String("reason", verr.Message))
			response.WriteError(w, r, http.StatusBadRequest, verr.Message)
		case errors.Is(err, auth.ErrConflict):
			log.Info("username already taken")
			response.WriteError(w, r, http.StatusBadRequest, auth.MsgConflict)
		case errors.Is(err, storage.ErrUserNotFound):
			log.Info("user from token not found", slog.String("user_id", id.UserID))
			response.WriteError(w, r, http.StatusUnauthorized, response.MsgUserNotFound)
		default:
			log.Error("failed to update profile", sl.Err(err))
			response.WriteInternal(w, r)
		}
		return
	}

	if res.Token != "" {
		h.cookies.Set(w, res.Token)
		log.Info("username changed",
			slog.String("user_id", id.UserID),
			slog.String("username", res.Profile.Username),
		)
	}

	render.JSON(w, r, Response{
		Message:     MsgUpdated,
		Username:    res.Profile.Username,
		Preferences: models.NormalizePreferences(res.Profile.Preferences),
	})
}
