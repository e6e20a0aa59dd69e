// Package middlewarectx содержит HTTP middleware сервиса: проверку сессии (guards),
// работу с сессионной cookie, ограничение частоты запросов и метрики запросов.
//
// Все четыре guard'а построены на одной функции решения, параметризованной Policy.
// Любая неудачная проверка токена сначала удаляет cookie, затем guard действует по своей политике.
package middlewarectx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/userprefs/internal/http/response"
	"github.com/magabrotheeeer/userprefs/internal/lib/jwt"
	"github.com/magabrotheeeer/userprefs/internal/lib/sl"
	"github.com/magabrotheeeer/userprefs/internal/metrics"
)

// Сообщения ошибок guard'ов.
const (
	MsgAuthRequired    = "Authentication required"
	MsgInvalidToken    = "Invalid or expired token"
	MsgAlreadyLoggedIn = "Already logged in"
)

// FailAction что делать, если требуется сессия, а её нет.
type FailAction int

// AuthedAction что делать, если сессия действительна.
type AuthedAction int

const (
	// Reject ответить ошибкой JSON.
	Reject FailAction = iota
	// Redirect перенаправить на LoginPath.
	Redirect
)

const (
	// Proceed положить Identity в контекст и вызвать обработчик.
	Proceed AuthedAction = iota
	// RejectAuthed ответить 400 "Already logged in".
	RejectAuthed
	// RedirectAuthed перенаправить на HomePath.
	RedirectAuthed
)

// Policy описывает поведение guard'а.
type Policy struct {
	Name        string
	RequireAuth bool
	OnFail      FailAction
	WhenAuthed  AuthedAction
	LoginPath   string
	HomePath    string
}

// Политики guard'ов.
var (
	APIRequire  = Policy{Name: "api_require", RequireAuth: true, OnFail: Reject, WhenAuthed: Proceed}
	APIReverse  = Policy{Name: "api_reverse", WhenAuthed: RejectAuthed}
	PageRequire = Policy{Name: "page_require", RequireAuth: true, OnFail: Redirect, WhenAuthed: Proceed, LoginPath: "/login"}
	PageReverse = Policy{Name: "page_reverse", WhenAuthed: RedirectAuthed, HomePath: "/"}
)

// TokenVerifier проверяет сессионный токен.
type TokenVerifier interface {
	Verify(tokenStr string) (*jwt.Claims, error)
}

type tokenState int

const (
	tokenAbsent tokenState = iota
	tokenInvalid
	tokenValid
	tokenUnverifiable
)

// Исходы решения guard'а, они же значения метки outcome.
const (
	outcomeNext      = "next"
	outcomeReject    = "reject"
	outcomeRedirect  = "redirect"
	outcomeForbidden = "already_authed"
	outcomeError     = "error"
)

// decision результат функции решения.
type decision struct {
	outcome  string
	status   int
	message  string
	location string
	identity bool
}

// decide единая таблица решений для всех guard'ов.
func decide(p Policy, state tokenState) decision {
	switch state {
	case tokenUnverifiable:
		if p.RequireAuth {
			return decision{outcome: outcomeError, status: http.StatusInternalServerError, message: response.MsgInternal}
		}
		return decision{outcome: outcomeNext}
	case tokenValid:
		switch p.WhenAuthed {
		case RejectAuthed:
			return decision{outcome: outcomeForbidden, status: http.StatusBadRequest, message: MsgAlreadyLoggedIn}
		case RedirectAuthed:
			return decision{outcome: outcomeRedirect, status: http.StatusFound, location: p.HomePath}
		default:
			return decision{outcome: outcomeNext, identity: true}
		}
	}

	if !p.RequireAuth {
		return decision{outcome: outcomeNext}
	}
	if p.OnFail == Redirect {
		return decision{outcome: outcomeRedirect, status: http.StatusFound, location: p.LoginPath}
	}
	msg := MsgAuthRequired
	if state == tokenInvalid {
		msg = MsgInvalidToken
	}
	return decision{outcome: outcomeReject, status: http.StatusUnauthorized, message: msg}
}

// Guard строит middleware по политикам.
type Guard struct {
	log     *slog.Logger
	tokens  TokenVerifier
	cookies Cookies
	metrics *metrics.Metrics
}

// NewGuard создаёт Guard. m может быть nil.
func NewGuard(log *slog.Logger, tokens TokenVerifier, cookies Cookies, m *metrics.Metrics) *Guard {
	return &Guard{
		log:     log,
		tokens:  tokens,
		cookies: cookies,
		metrics: m,
	}
}

// Middleware возвращает middleware для политики p.
func (g *Guard) Middleware(p Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.Guard"
			log := g.log.With(
				sl.Op(op),
				slog.String("guard", p.Name),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			state, claims := g.inspect(log, r)
			if state == tokenInvalid {
				g.cookies.Clear(w)
			}

			d := decide(p, state)
			g.metrics.Guard(p.Name, d.outcome)

			switch {
			case d.outcome == outcomeNext:
				ctx := r.Context()
				if d.identity {
					ctx = WithIdentity(ctx, Identity{UserID: claims.UserID, Username: claims.Username})
				}
				next.ServeHTTP(w, r.WithContext(ctx))
			case d.location != "":
				http.Redirect(w, r, d.location, d.status)
			default:
				response.WriteError(w, r, d.status, d.message)
			}
		})
	}
}

func (g *Guard) inspect(log *slog.Logger, r *http.Request) (tokenState, *jwt.Claims) {
	token := TokenFromRequest(r)
	if token == "" {
		return tokenAbsent, nil
	}
	claims, err := g.tokens.Verify(token)
	switch {
	case errors.Is(err, jwt.ErrMissingSecret):
		log.Error("session secret is not configured", sl.Err(err))
		return tokenUnverifiable, nil
	case err != nil:
		log.Debug("session token rejected", sl.Err(err))
		return tokenInvalid, nil
	}
	return tokenValid, claims
}
