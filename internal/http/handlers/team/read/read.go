// Package read отдаёт одну команду по ID из URL.
package read

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/userprefs/internal/http/response"
	"github.com/magabrotheeeer/userprefs/internal/lib/sl"
	"github.com/magabrotheeeer/userprefs/internal/services/team"
)

// MsgTeamNotFound ответ на неизвестный ID.
const MsgTeamNotFound = "Team not found"

// Directory описывает поиск команды.
type Directory interface {
	Get(id string) (team.Team, error)
}

// Handler обрабатывает GET /api/teams/{id}.
type Handler struct {
	log   *slog.Logger
	teams Directory
}

// New создаёт Handler.
func New(log *slog.Logger, teams Directory) *Handler {
	return &Handler{log: log, teams: teams}
}

// ServeHTTP godoc
// @Summary Команда по ID
// @Tags Teams
// @Produce json
// @Param id path string true "ID команды"
// @Success 200 {object} team.Team
// @Failure 404 {object} response.ErrorResponse "Команда не найдена"
// @Router /api/teams/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.team.read"

	id := chi.URLParam(r, "id")
	t, err := h.teams.Get(id)
	if errors.Is(err, team.ErrTeamNotFound) {
		h.log.Debug("team not found",
			sl.Op(op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("team_id", id),
		)
		response.WriteError(w, r, http.StatusNotFound, MsgTeamNotFound)
		return
	}
	if err != nil {
		response.WriteInternal(w, r)
		return
	}

	render.JSON(w, r, t)
}
