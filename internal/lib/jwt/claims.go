package jwt

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims описывает данные, хранящиеся в сессионном токене.
type Claims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Sign создаёт токен с userId, username, временем выпуска и сроком действия TokenTTL.
func (m *MakerImpl) Sign(userID, username string) (string, error) {
	const op = "jwt.Sign"
	if len(m.secretKey) == 0 {
		return "", fmt.Errorf("%s: %w", op, ErrMissingSecret)
	}

	now := m.now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return token, nil
}

// Verify проверяет подпись, алгоритм и срок действия токена.
// Проверка бинарная: любая ошибка сводится к ErrInvalidToken.
func (m *MakerImpl) Verify(tokenStr string) (*Claims, error) {
	const op = "jwt.Verify"
	if len(m.secretKey) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingSecret)
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{},
		func(_ *jwt.Token) (any, error) {
			return m.secretKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}
	return claims, nil
}
