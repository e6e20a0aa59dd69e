// Package userprefs собирает HTTP-приложение сервиса учётных записей и настроек.
package userprefs

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/userprefs/internal/config"
	"github.com/magabrotheeeer/userprefs/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/userprefs/internal/http/handlers/auth/logout"
	"github.com/magabrotheeeer/userprefs/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/userprefs/internal/http/handlers/health"
	"github.com/magabrotheeeer/userprefs/internal/http/handlers/pages"
	teamlist "github.com/magabrotheeeer/userprefs/internal/http/handlers/team/list"
	teamread "github.com/magabrotheeeer/userprefs/internal/http/handlers/team/read"
	"github.com/magabrotheeeer/userprefs/internal/http/handlers/user/me"
	"github.com/magabrotheeeer/userprefs/internal/http/handlers/user/preferences"
	"github.com/magabrotheeeer/userprefs/internal/http/handlers/user/profile"
	"github.com/magabrotheeeer/userprefs/internal/http/middlewarectx"
	"github.com/magabrotheeeer/userprefs/internal/lib/jwt"
	"github.com/magabrotheeeer/userprefs/internal/metrics"
	authservice "github.com/magabrotheeeer/userprefs/internal/services/auth"
	"github.com/magabrotheeeer/userprefs/internal/services/team"
	userservice "github.com/magabrotheeeer/userprefs/internal/services/user"
)

// Deps зависимости, нужные маршрутам.
type Deps struct {
	Log       *slog.Logger
	Auth      *authservice.Service
	User      *userservice.Service
	Teams     *team.Directory
	Store     health.Pinger
	Tokens    jwt.Maker
	Metrics   *metrics.Metrics
	Gatherer  prometheus.Gatherer
	Cookies   middlewarectx.Cookies
	RateLimit config.RateLimit
	StaticDir string
	Timeout   time.Duration
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, d Deps) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middlewarectx.RequestMetrics(d.Metrics),
	)
	if d.Timeout > 0 {
		r.Use(middleware.Timeout(d.Timeout))
	}

	guard := middlewarectx.NewGuard(d.Log, d.Tokens, d.Cookies, d.Metrics)
	out := logout.New(d.Log, d.Cookies, middlewarectx.PageRequire.LoginPath)
	pg := pages.New(d.Log, d.StaticDir)

	r.Route("/api", func(r chi.Router) {
		// Вход и регистрация только без действующей сессии
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(d.Log, d.RateLimit.RPS, d.RateLimit.Burst))
			r.Use(guard.Middleware(middlewarectx.APIReverse))
			r.Post("/login", login.New(d.Log, d.Auth, d.Cookies).ServeHTTP)
			r.Post("/register", register.New(d.Log, d.Auth, d.Cookies).ServeHTTP)
		})

		// Группа с обязательной сессией
		r.Group(func(r chi.Router) {
			r.Use(guard.Middleware(middlewarectx.APIRequire))
			r.Post("/preferences", preferences.New(d.Log, d.User).ServeHTTP)
			r.Post("/profile", profile.New(d.Log, d.User, d.Cookies).ServeHTTP)
			r.Get("/me", me.New(d.Log, d.User).ServeHTTP)
		})

		r.Post("/logout", out.API)
		r.Get("/teams", teamlist.New(d.Log, d.Teams).ServeHTTP)
		r.Get("/teams/{id}", teamread.New(d.Log, d.Teams).ServeHTTP)
	})

	// Страницы
	r.Get("/logout", out.Page)
	r.With(guard.Middleware(middlewarectx.PageRequire)).Get("/", pg.Page(pages.IndexPage))
	r.With(guard.Middleware(middlewarectx.PageRequire)).Get("/preferences", pg.Page(pages.PreferencesPage))
	r.With(guard.Middleware(middlewarectx.PageReverse)).Get("/login", pg.Page(pages.LoginPage))
	r.With(guard.Middleware(middlewarectx.PageReverse)).Get("/register", pg.Page(pages.RegisterPage))
	for path, target := range pages.Canonical {
		r.Get(path, pages.Redirect(target))
	}
	r.Handle("/static/*", pg.Static())

	r.Get("/healthz", health.New(d.Log, d.Store).ServeHTTP)
	r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
