// Package preferences целиком заменяет настройки текущего пользователя.
package preferences

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
	"github.com/magabrotheeeer/userprefs/internal/storage"
)

// Сообщения обработчика.
const (
	MsgUpdated   = "Preferences updated"
	MsgNotObject = "Preferences must be an object"
)

// Request тело запроса.
type Request struct {
	Preferences any `json:"preferences" swaggertype:"object"`
}

// Service описывает замену настроек.
type Service interface {
	ReplacePreferences(ctx context.Context, userID string, preferences map[string]any) error
}

// Handler обрабатывает POST /api/preferences.
type Handler struct {
	log  *slog.Logger
	user Service
}

// New создаёт Handler.
func New(log *slog.Logger, user Service) *Handler {
	return &Handler{log: log, user: user}
}

// ServeHTTP godoc
// @Summary Замена настроек
// @Description Заменяет настройки пользователя переданным объектом целиком.
// @Tags User
// @Accept json
// @Produce json
// @Param request body Request true "Новые настройки"
// @Success 200 {object} response.MessageResponse
// @Failure 400 {object} response.ErrorResponse "preferences не объект"
// @Failure 401 {object} response.ErrorResponse "Нет сессии"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /api/preferences [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.preferences"

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
		response.WriteError(w, r, http.StatusBadRequest, MsgNotObject)
		return
	}
	prefs, ok := req.Preferences.(map[string]any)
	if !ok {
		log.Info("preferences is not an object")
		response.WriteError(w, r, http.StatusBadRequest, MsgNotObject)
		return
	}

	err := h.user.ReplacePreferences(r.Context(), id.UserID, prefs)
	if errors.Is(err, storage.ErrUserNotFound) {
		log.Info("user from token not found", slog.String("user_id", id.UserID))
		response.WriteError(w, r, http.StatusUnauthorized, response.MsgUserNotFound)
		return
	}
	if err != nil {
		log.Error("failed to replace preferences", sl.Err(err))
		response.WriteInternal(w, r)
		return
	}

	log.Info("preferences replaced", slog.String("user_id", id.UserID))
	render.JSON(w, r, response.Message(MsgUpdated))
}
