// Package pages отдаёт статические HTML-страницы и ассеты.
// Доступ к страницам ограничивается guard-ами на уровне маршрутов.
package pages

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/magabrotheeeer/userprefs/internal/lib/sl"
)

// Имена файлов страниц в каталоге статики.
const (
	IndexPage       = "index.html"
	LoginPage       = "login.html"
	RegisterPage    = "register.html"
	PreferencesPage = "preferences.html"
)

// Canonical сопоставляет прямые пути к файлам страниц с их каноническими адресами.
var Canonical = map[string]string{
	"/" + IndexPage:       "/",
	"/" + LoginPage:       "/login",
	"/" + RegisterPage:    "/register",
	"/" + PreferencesPage: "/preferences",
}

// Handler отдаёт файлы из каталога dir.
type Handler struct {
	log *slog.Logger
	dir string
}

// New создаёт Handler.
func New(log *slog.Logger, dir string) *Handler {
	return &Handler{log: log, dir: dir}
}

// Page возвращает обработчик, отдающий страницу name.
func (h *Handler) Page(name string) http.HandlerFunc {
	path := filepath.Join(h.dir, name)
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := os.Stat(path); err != nil {
			h.log.Warn("page file missing", sl.Op("handlers.pages.Page"), slog.String("path", path))
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		http.ServeFile(w, r, path)
	}
}

// Redirect возвращает обработчик, постоянно перенаправляющий на target.
func Redirect(target string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target, http.StatusMovedPermanently)
	}
}

// Static отдаёт ассеты из dir/static под префиксом /static/.
func (h *Handler) Static() http.Handler {
	return http.StripPrefix("/static/", http.FileServer(http.Dir(filepath.Join(h.dir, "static"))))
}
