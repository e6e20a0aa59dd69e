// Package login реализует HTTP-обработчик входа пользователя.
//
// Нестроковые username/password и неверная пара логин/пароль дают один и тот же ответ 401,
// чтобы по ответу нельзя было понять, существует ли пользователь.
package login

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
)

// Request входные данные входа. Поля принимают любой JSON, тип проверяется обработчиком.
type Request struct {
	Username any `json:"username" swaggertype:"string"`
	Password any `json:"password" swaggertype:"string"`
}

// Service описывает проверку учётных данных.
type Service interface {
	Login(ctx context.Context, username, password string) (*auth.LoginResult, error)
}

// Handler обрабатывает POST /api/login.
type Handler struct {
	log     *slog.Logger
	auth    Service
	cookies middlewarectx.Cookies
}

// New создаёт Handler.
func New(log *slog.Logger, authService Service, cookies middlewarectx.Cookies) *Handler {
	return &Handler{
		log:     log,
		auth:    authService,
		cookies: cookies,
	}
}

// ServeHTTP godoc
// @Summary Вход пользователя
// @Description Проверяет username и пароль, выставляет cookie auth с сессионным токеном.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body Request true "Учётные данные"
// @Success 200 {object} models.Profile
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или уже выполнен вход"
// @Failure 401 {object} response.ErrorResponse "Неверные учётные данные"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /api/login [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.login"

	log := h.log.With(
		sl.Op(op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Info("failed to decode request body", sl.Err(err))
		response.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	username, okUser := req.Username.(string)
	password, okPass := req.Password.(string)
	if !okUser || !okPass {
		log.Info("credentials are not strings")
		response.WriteError(w, r, http.StatusUnauthorized, auth.MsgInvalidCredentials)
		return
	}

	res, err := h.auth.Login(r.Context(), username, password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		log.Info("invalid credentials")
		response.WriteError(w, r, http.StatusUnauthorized, auth.MsgInvalidCredentials)
		return
	}
	if err != nil {
		log.Error("login failed", sl.Err(err))
		response.WriteInternal(w, r)
		return
	}

	h.cookies.Set(w, res.Token)
	log.Info("login success", slog.String("user_id", res.User.ID))
	render.JSON(w, r, models.Profile{
		Username:    res.User.Username,
		Preferences: models.NormalizePreferences(res.User.Preferences),
	})
}
