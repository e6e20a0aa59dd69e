package auth

import "errors"

// Сообщения, которые отдаются клиенту без изменений.
const (
	MsgInvalidCredentials = "Invalid username or password"
	MsgConflict           = "Username or email already exists"
)

var (
	// ErrInvalidCredentials возвращается при неверной паре логин/пароль.
	// Не различает несуществующего пользователя и неверный пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrConflict возвращается, если username или email уже заняты.
	ErrConflict = errors.New("username or email already exists")
)

// ValidationError описывает нарушение правил ввода. Message отдаётся клиенту как есть.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError создаёт ValidationError с сообщением msg.
func NewValidationError(msg string) error {
	return &ValidationError{Message: msg}
}
