// Package models содержит доменную модель пользователя и производные от неё представления.
package models

import "time"

// User представляет зарегистрированного пользователя системы.
type User struct {
	ID           string         `json:"userId"`      // Идентификатор, назначается хранилищем
	Username     string         `json:"username"`    // Имя пользователя (уникальное, в нижнем регистре)
	Email        string         `json:"email"`       // Электронная почта (уникальная, в нижнем регистре)
	PasswordHash string         `json:"-"`           // Хэш пароля, наружу не отдаётся
	Preferences  map[string]any `json:"preferences"` // Произвольные настройки пользователя
	CreatedAt    time.Time      `json:"createdAt"`   // Дата создания
}

// Profile публичное представление пользователя.
type Profile struct {
	Username    string         `json:"username"`
	Preferences map[string]any `json:"preferences"`
}

// ProfileUpdate описывает частичное обновление пользователя.
// Nil-поля не изменяются.
type ProfileUpdate struct {
	Username    *string
	Preferences map[string]any
}

// Empty сообщает, что обновление ничего не меняет.
func (u ProfileUpdate) Empty() bool {
	return u.Username == nil && u.Preferences == nil
}

// Profile возвращает публичное представление пользователя.
func (u *User) Profile() Profile {
	return Profile{
		Username:    u.Username,
		Preferences: NormalizePreferences(u.Preferences),
	}
}

// NormalizePreferences гарантирует, что настройки всегда объект, а не null.
func NormalizePreferences(p map[string]any) map[string]any {
	if p == nil {
		return map[string]any{}
	}
	return p
}
