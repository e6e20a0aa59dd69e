// Package logout удаляет сессионную cookie. Токен при этом не отзывается
// и остаётся действительным до истечения срока.
package logout

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/userprefs/internal/http/middlewarectx"
	"github.com/magabrotheeeer/userprefs/internal/http/response"
	"github.com/magabrotheeeer/userprefs/internal/lib/sl"
)

// MsgLoggedOut ответ на успешный выход.
const MsgLoggedOut = "Logged out"

// Handler обрабатывает выход для API и для страниц.
type Handler struct {
	log       *slog.Logger
	cookies   middlewarectx.Cookies
	loginPath string
}

// New создаёт Handler. После выхода со страницы пользователь попадает на loginPath.
func New(log *slog.Logger, cookies middlewarectx.Cookies, loginPath string) *Handler {
	return &Handler{
		log:       log,
		cookies:   cookies,
		loginPath: loginPath,
	}
}

// API godoc
// @Summary Выход
// @Description Удаляет cookie auth.
// @Tags Auth
// @Produce json
// @Success 200 {object} response.MessageResponse
// @Router /api/logout [post]
func (h *Handler) API(w http.ResponseWriter, r *http.Request) {
	h.cookies.Clear(w)
	h.log.Debug("logout",
		sl.Op("handlers.auth.logout"),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
	render.JSON(w, r, response.Message(MsgLoggedOut))
}

// Page удаляет cookie и перенаправляет на страницу входа.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	h.cookies.Clear(w)
	http.Redirect(w, r, h.loginPath, http.StatusFound)
}
