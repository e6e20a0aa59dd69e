package auth

import (
	"errors"
	"regexp"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/userprefs/internal/lib/password"
)

// Сообщения правил регистрации.
const (
	MsgUsernameTooShort = "Username must be at least 3 characters long"
	MsgPasswordTooShort = "Password must be at least 6 characters long"
	MsgInvalidEmail     = "Invalid email format"
	MsgPasswordTooLong  = "Password must be at most 72 bytes long"
	MsgInvalidInput     = "Invalid input"
)

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// rule связывает нарушение поля с сообщением; order задаёт приоритет, первое правило выигрывает.
type rule struct {
	order   int
	message string
}

var registrationRules = map[string]rule{
	"Username.min":        {1, MsgUsernameTooShort},
	"Password.min":        {2, MsgPasswordTooShort},
	"Email.basic_email":   {3, MsgInvalidEmail},
	"Password.bcrypt_len": {4, MsgPasswordTooLong},
}

// NewValidator создаёт валидатор с правилами basic_email и bcrypt_len.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("basic_email", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("bcrypt_len", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= password.MaxLength
	})
	return v
}

// firstViolation переводит ошибки валидатора в ValidationError с сообщением самого приоритетного правила.
func firstViolation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	best := rule{order: len(registrationRules) + 1, message: MsgInvalidInput}
	for _, fe := range verrs {
		if r, ok := registrationRules[fe.StructField()+"."+fe.Tag()]; ok && r.order < best.order {
			best = r
		}
	}
	return NewValidationError(best.message)
}

// ValidateUsername проверяет уже нормализованное имя пользователя.
func ValidateUsername(username string) error {
	if len([]rune(username)) < 3 {
		return NewValidationError(MsgUsernameTooShort)
	}
	return nil
}
