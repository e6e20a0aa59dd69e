package middlewarectx

import (
	"net/http"
	"strings"

	"github.com/magabrotheeeer/userprefs/internal/lib/jwt"
)

// CookieName имя cookie с сессионным токеном.
const CookieName = "auth"

// Cookies выставляет и удаляет сессионную cookie. Secure включается в продакшене.
type Cookies struct {
	Secure bool
}

// Set выставляет cookie с токеном на TokenTTL.
func (c Cookies) Set(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(jwt.TokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear удаляет cookie по имени и пути.
func (c Cookies) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// TokenFromRequest возвращает токен из cookie auth, иначе из заголовка Authorization: Bearer.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}
