// Package password реализует функции для безопасного хеширования и проверки паролей.
//
// Hasher хранит стоимость bcrypt; по умолчанию используется DefaultCost этого пакета,
// а не bcrypt.DefaultCost.
package password

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost стоимость bcrypt для хранимых паролей.
const DefaultCost = 15

// MaxLength максимальная длина пароля в байтах, которую принимает bcrypt.
const MaxLength = 72

// ErrMismatch возвращается, если пароль не соответствует хешу.
var ErrMismatch = errors.New("password does not match")

// Hasher создаёт и сравнивает bcrypt-хеши.
type Hasher struct {
	cost int

	dummyOnce sync.Once
	dummyHash []byte
}

// NewHasher создаёт Hasher с заданной стоимостью.
// Значения вне диапазона bcrypt заменяются на DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Hasher{cost: cost}
}

// Cost возвращает стоимость bcrypt.
func (h *Hasher) Cost() int {
	return h.cost
}

// GetHash принимает пароль пользователя и возвращает его bcrypt‑хэш.
func (h *Hasher) GetHash(password string) (string, error) {
	const op = "password.GetHash"
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashedPassword), nil
}

// CompareHash сравнивает bcrypt‑хэш с введённым паролем.
//
// Возвращает nil при совпадении, ErrMismatch при несовпадении.
func (h *Hasher) CompareHash(originalHash, externalPassword string) error {
	const op = "password.CompareHash"
	err := bcrypt.CompareHashAndPassword([]byte(originalHash), []byte(externalPassword))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return fmt.Errorf("%s: %w", op, ErrMismatch)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CompareDummy выполняет сравнение с фиксированным хешем той же стоимости.
// Вызывается, когда пользователь не найден, чтобы время ответа не отличалось
// от проверки неверного пароля. Всегда возвращает ErrMismatch.
func (h *Hasher) CompareDummy(externalPassword string) error {
	h.dummyOnce.Do(func() {
		h.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), h.cost)
	})
	_ = bcrypt.CompareHashAndPassword(h.dummyHash, []byte(externalPassword))
	return fmt.Errorf("password.CompareDummy: %w", ErrMismatch)
}
