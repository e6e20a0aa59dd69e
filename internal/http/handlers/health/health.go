// Package health отвечает на проверку живости сервиса.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/userprefs/internal/http/response"
	"github.com/magabrotheeeer/userprefs/internal/lib/sl"
)

// PingTimeout ограничивает проверку хранилища.
const PingTimeout = 2 * time.Second

// Pinger проверяет доступность хранилища.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Response ответ проверки.
type Response struct {
	Status string `json:"status" example:"ok"`
}

type Handler struct {
	log   *slog.Logger
	store Pinger
}

func New(log *slog.Logger, store Pinger) *Handler {
	return &Handler{
		log:   log,
		store: store,
	}
}

// ServeHTTP godoc
// @Summary Проверка живости
// @Tags Health
// @Produce json
// @Success 200 {object} Response
// @Failure 503 {object} response.ErrorResponse "Хранилище недоступно"
// @Router /healthz [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"

	ctx, cancel := context.WithTimeout(r.Context(), PingTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.log.Error("store ping failed", sl.Op(op), sl.Err(err))
		response.WriteError(w, r, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	render.JSON(w, r, Response{Status: "ok"})
}
