// Package register реализует HTTP-обработчик регистрации.
// После создания учётной записи обработчик сразу выполняет вход и выставляет cookie.
package register

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

// MsgPreferencesNotObject ответ на preferences, не являющиеся JSON-объектом.
const MsgPreferencesNotObject = "Preferences must be an object"

// Request входные данные регистрации. Нестроковые значения считаются пустой строкой.
type Request struct {
	Username    any `json:"username" swaggertype:"string"`
	Password    any `json:"password" swaggertype:"string"`
	Email       any `json:"email" swaggertype:"string"`
	Preferences any `json:"preferences,omitempty" swaggertype:"object"`
}

// Response ответ на успешную регистрацию.
type Response struct {
	UserID      string         `json:"userId"`
	Username    string         `json:"username"`
	Preferences map[string]any `json:"preferences"`
}

// Service описывает регистрацию и выпуск токена для нового пользователя.
type Service interface {
	Register(ctx context.Context, reg auth.Registration) (*models.User, error)
	Issue(user *models.User) (string, error)
}

// Handler обрабатывает POST /api/register.
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
// @Summary Регистрация пользователя
// @Description Создаёт учётную запись, выполняет вход и выставляет cookie auth.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body Request true "Данные нового пользователя"
// @Success 201 {object} Response
// @Failure 400 {object} response.ErrorResponse "Ошибка валидации или пользователь уже существует"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /api/register [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.register"

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

	reg := auth.Registration{
		Username: asString(req.Username),
		Password: asString(req.Password),
		Email:    asString(req.Email),
	}
	switch prefs := req.Preferences.(type) {
	case nil:
	case map[string]any:
		reg.Preferences = prefs
	default:
		log.Info("preferences is not an object")
		response.WriteError(w, r, http.StatusBadRequest, MsgPreferencesNotObject)
		return
	}

	user, err := h.auth.Register(r.Context(), reg)
	if err != nil {
		var verr *auth.ValidationError
		switch {
		case errors.As(err, &verr):
			log.Info("validation failed", slog.String("reason", verr.Message))
			response.WriteError(w, r, http.StatusBadRequest, verr.Message)
		case errors.Is(err, auth.ErrConflict):
			log.Info("username or email already taken")
			response.WriteError(w, r, http.StatusBadRequest, auth.MsgConflict)
		default:
			log.Error("registration failed", sl.Err(err))
			response.WriteInternal(w, r)
		}
		return
	}

	token, err := h.auth.Issue(user)
	if err != nil {
		log.Error("failed to issue token", slog.String("user_id", user.ID), sl.Err(err))
		response.WriteInternal(w, r)
		return
	}

	h.cookies.Set(w, token)
	log.Info("user registered", slog.String("user_id", user.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, Response{
		UserID:      user.ID,
		Username:    user.Username,
		Preferences: models.NormalizePreferences(user.Preferences),
	})
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
