// Package storage описывает хранилище учётных записей пользователей.
//
// Реализации: postgresql (таблица users) и mongodb (коллекция users).
// Обе гарантируют уникальность username и email и атомарность изменения одной записи.
package storage

import (
	"context"
	"errors"

	"github.com/magabrotheeeer/userprefs/internal/models"
)

var (
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists возвращается при нарушении уникальности username или email.
	ErrUserExists = errors.New("user already exists")
)

// Storage общий контракт хранилища пользователей.
type Storage interface {
	// RegisterUser сохраняет нового пользователя и возвращает его ID.
	RegisterUser(ctx context.Context, user models.User) (string, error)
	// GetUserByUsername возвращает пользователя по имени.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	// GetUser возвращает пользователя по ID.
	GetUser(ctx context.Context, userID string) (*models.User, error)
	// ReplacePreferences целиком заменяет настройки пользователя.
	ReplacePreferences(ctx context.Context, userID string, preferences map[string]any) error
	// UpdateProfile применяет частичное обновление и возвращает итоговую запись
	// вместе с username, который был у записи до изменения.
	UpdateProfile(ctx context.Context, userID string, update models.ProfileUpdate) (updated *models.User, previousUsername string, err error)
	// Ping проверяет доступность хранилища.
	Ping(ctx context.Context) error
	// Close освобождает соединение.
	Close(ctx context.Context) error
}
