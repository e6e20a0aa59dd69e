// Package list отдаёт справочник команд целиком.
package list

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/userprefs/internal/services/team"
)

// Directory описывает источник команд.
type Directory interface {
	List() []team.Team
}

// Handler обрабатывает GET /api/teams.
type Handler struct {
	log   *slog.Logger
	teams Directory
}

// New создаёт Handler.
func New(log *slog.Logger, teams Directory) *Handler {
	return &Handler{log: log, teams: teams}
}

// ServeHTTP godoc
// @Summary Список команд
// @Tags Teams
// @Produce json
// @Success 200 {array} team.Team
// @Router /api/teams [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.teams.List())
}
