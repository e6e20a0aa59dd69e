// Package jwt реализует подпись и проверку сессионных токенов.
//
// Токен самодостаточен: он несёт идентификатор и имя пользователя, время выпуска
// и срок действия, подписан общим секретом сервера (HS256) и нигде не хранится.
package jwt

import (
	"errors"
	"time"
)

// TokenTTL фиксированное время жизни сессионного токена.
const TokenTTL = 24 * time.Hour

var (
	// ErrMissingSecret возвращается, если секрет для подписи не настроен.
	ErrMissingSecret = errors.New("jwt secret key is not configured")
	// ErrInvalidToken возвращается при неверной подписи, структуре или истёкшем сроке токена.
	ErrInvalidToken = errors.New("invalid token")
)

// Maker описывает подпись и проверку сессионных токенов.
type Maker interface {
	// Sign выпускает токен для пользователя.
	Sign(userID, username string) (string, error)
	// Verify проверяет токен и возвращает его claims.
	Verify(tokenStr string) (*Claims, error)
}

// MakerImpl реализует Maker с использованием секретного ключа.
type MakerImpl struct {
	secretKey []byte
	now       func() time.Time
}

// Option настраивает MakerImpl.
type Option func(*MakerImpl)

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(m *MakerImpl) {
		m.now = now
	}
}

// NewJWTMaker создаёт MakerImpl. Пустой секрет допустим: в этом случае
// Sign и Verify возвращают ErrMissingSecret.
func NewJWTMaker(secretKey string, opts ...Option) *MakerImpl {
	m := &MakerImpl{
		secretKey: []byte(secretKey),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}
