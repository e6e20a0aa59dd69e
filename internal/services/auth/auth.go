// Package auth реализует регистрацию и проверку учётных данных пользователей.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/userprefs/internal/lib/jwt"
	"github.com/magabrotheeeer/userprefs/internal/lib/password"
	"github.com/magabrotheeeer/userprefs/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/userprefs/internal/lib/sl"
	"github.com/magabrotheeeer/userprefs/internal/metrics"
	"github.com/magabrotheeeer/userprefs/internal/models"
	"github.com/magabrotheeeer/userprefs/internal/storage"
)

// UserStorage описывает операции хранилища, нужные для входа и регистрации.
type UserStorage interface {
	RegisterUser(ctx context.Context, user models.User) (string, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// PasswordHasher описывает хеширование и сравнение паролей.
type PasswordHasher interface {
	GetHash(password string) (string, error)
	CompareHash(hash, password string) error
	CompareDummy(password string) error
}

// EventPublisher публикует события аккаунтов.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// Registration входные данные регистрации.
type Registration struct {
	Username    string `validate:"min=3"`
	Password    string `validate:"min=6,bcrypt_len"`
	Email       string `validate:"basic_email"`
	Preferences map[string]any
}

// LoginResult результат успешного входа.
type LoginResult struct {
	Token string
	User  *models.User
}

// Service отвечает за вход и регистрацию.
type Service struct {
	log      *slog.Logger
	users    UserStorage
	hasher   PasswordHasher
	tokens   jwt.Maker
	events   EventPublisher
	metrics  *metrics.Metrics
	validate *validator.Validate
	now      func() time.Time
}

// New создаёт Service. events может быть nil, тогда события не публикуются.
func New(
	log *slog.Logger,
	users UserStorage,
	hasher PasswordHasher,
	tokens jwt.Maker,
	events EventPublisher,
	m *metrics.Metrics,
) *Service {
	if events == nil {
		events = rabbitmq.Noop{}
	}
	return &Service{
		log:      log,
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		events:   events,
		metrics:  m,
		validate: NewValidator(),
		now:      time.Now,
	}
}

// Login проверяет пару логин/пароль и выпускает сессионный токен.
// Для несуществующего пользователя и неверного пароля возвращается одна и та же ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, rawPassword string) (*LoginResult, error) {
	const op = "services.auth.Login"

	username = NormalizeUsername(username)
	user, err := s.users.GetUserByUsername(ctx, username)
	if errors.Is(err, storage.ErrUserNotFound) {
		_ = s.hasher.CompareDummy(rawPassword)
		s.metrics.Login(metrics.ResultInvalid)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		s.metrics.Login(metrics.ResultError)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.hasher.CompareHash(user.PasswordHash, rawPassword); err != nil {
		if !errors.Is(err, password.ErrMismatch) {
			s.log.Warn("password comparison failed", sl.Op(op), sl.Err(err))
		}
		s.metrics.Login(metrics.ResultInvalid)
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Sign(user.ID, user.Username)
	if err != nil {
		s.metrics.Login(metrics.ResultError)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.Login(metrics.ResultSuccess)
	return &LoginResult{Token: token, User: user}, nil
}

// Issue выпускает сессионный токен для уже проверенного пользователя, например сразу после регистрации.
func (s *Service) Issue(user *models.User) (string, error) {
	const op = "services.auth.Issue"

	token, err := s.tokens.Sign(user.ID, user.Username)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return token, nil
}

// Register проверяет ввод, хеширует пароль и сохраняет пользователя.
// Токен не выпускается, его выдаёт Issue.
func (s *Service) Register(ctx context.Context, reg Registration) (*models.User, error) {
	const op = "services.auth.Register"

	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = strings.TrimSpace(reg.Email)
	if err := s.validate.Struct(reg); err != nil {
		s.metrics.Registration(metrics.ResultInvalid)
		return nil, firstViolation(err)
	}

	hash, err := s.hasher.GetHash(reg.Password)
	if err != nil {
		s.metrics.Registration(metrics.ResultError)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user := models.User{
		Username:     strings.ToLower(reg.Username),
		Email:        strings.ToLower(reg.Email),
		PasswordHash: hash,
		Preferences:  models.NormalizePreferences(reg.Preferences),
		CreatedAt:    s.now().UTC(),
	}

	id, err := s.users.RegisterUser(ctx, user)
	if errors.Is(err, storage.ErrUserExists) {
		s.metrics.Registration(metrics.ResultConflict)
		return nil, ErrConflict
	}
	if err != nil {
		s.metrics.Registration(metrics.ResultError)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	user.ID = id
	s.metrics.Registration(metrics.ResultSuccess)

	event := rabbitmq.UserRegistered{UserID: id, Username: user.Username, CreatedAt: user.CreatedAt}
	if err := s.events.Publish(ctx, rabbitmq.RoutingUserRegistered, event); err != nil {
		s.log.Warn("failed to publish event",
			sl.Op(op),
			slog.String("routing_key", rabbitmq.RoutingUserRegistered),
			sl.Err(err),
		)
	}

	return &user, nil
}

// NormalizeUsername приводит имя пользователя к каноническому виду.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
