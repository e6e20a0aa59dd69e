// Package response содержит типы JSON-ответов HTTP-обработчиков.
// Ошибка отдаётся как {"error": "..."}, простой успех как {"message": "..."}.
package response

import (
	"net/http"

	"github.com/go-chi/render"
)

// MsgInternal сообщение для любых непредвиденных ошибок. Детали наружу не отдаются.
const MsgInternal = "internal server error"

// MsgUserNotFound ответ, если пользователь из токена больше не существует.
const MsgUserNotFound = "User not found"

// ErrorResponse описывает ответ с ошибкой.
type ErrorResponse struct {
	Error string `json:"error" example:"Invalid username or password"`
}

// MessageResponse описывает ответ с сообщением.
type MessageResponse struct {
	Message string `json:"message" example:"Preferences updated"`
}

// Error возвращает ErrorResponse с переданным сообщением.
func Error(msg string) ErrorResponse {
	return ErrorResponse{Error: msg}
}

// Message возвращает MessageResponse с переданным сообщением.
func Message(msg string) MessageResponse {
	return MessageResponse{Message: msg}
}

// WriteError пишет ошибку со статусом status.
func WriteError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, Error(msg))
}

// WriteInternal пишет 500 с обобщённым сообщением.
func WriteInternal(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, http.StatusInternalServerError, MsgInternal)
}
