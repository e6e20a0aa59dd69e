// Package user реализует чтение профиля и изменение настроек текущего пользователя.
package user

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/magabrotheeeer/userprefs/internal/lib/jwt"
	"github.com/magabrotheeeer/userprefs/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/userprefs/internal/lib/sl"
	"github.com/magabrotheeeer/userprefs/internal/models"
	"github.com/magabrotheeeer/userprefs/internal/services/auth"
	"github.com/magabrotheeeer/userprefs/internal/storage"
)

// ProfileTTL время жизни профиля в кеше.
const ProfileTTL = 5 * time.Minute

const cacheStripes = 64

// UserStorage описывает операции хранилища над записью пользователя.
type UserStorage interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	ReplacePreferences(ctx context.Context, userID string, preferences map[string]any) error
	UpdateProfile(ctx context.Context, userID string, update models.ProfileUpdate) (*models.User, string, error)
}

// Cache описывает кеш профилей.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// EventPublisher публикует события аккаунтов.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// UpdateResult результат обновления профиля.
// Token не пуст, только если username изменился.
type UpdateResult struct {
	Profile models.Profile
	Token   string
}

// stripe хранит поколение записей кеша для группы пользователей.
// Каждое успешное изменение в хранилище увеличивает gen под mu.
type stripe struct {
	mu  sync.Mutex
	gen uint64
}

// Service работает с профилем текущего пользователя.
type Service struct {
	log     *slog.Logger
	users   UserStorage
	cache   Cache
	tokens  jwt.Maker
	events  EventPublisher
	stripes [cacheStripes]stripe
}

// New создаёт Service. events может быть nil.
func New(log *slog.Logger, users UserStorage, cache Cache, tokens jwt.Maker, events EventPublisher) *Service {
	if events == nil {
		events = rabbitmq.Noop{}
	}
	return &Service{
		log:    log,
		users:  users,
		cache:  cache,
		tokens: tokens,
		events: events,
	}
}

// ProfileKey возвращает ключ кеша профиля.
func ProfileKey(userID string) string {
	return "profile:" + userID
}

func (s *Service) stripe(userID string) *stripe {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return &s.stripes[h.Sum32()%cacheStripes]
}

// CurrentUser возвращает профиль пользователя, сначала из кеша, затем из хранилища.
// Прочитанный из хранилища профиль кладётся в кеш, только если за время чтения
// запись пользователя не менялась.
func (s *Service) CurrentUser(ctx context.Context, userID string) (models.Profile, error) {
	const op = "services.user.CurrentUser"
	log := s.log.With(sl.Op(op))

	var cached models.Profile
	found, err := s.cache.Get(ctx, ProfileKey(userID), &cached)
	if err != nil {
		log.Warn("cache read failed", sl.Err(err))
	}
	if found {
		cached.Preferences = models.NormalizePreferences(cached.Preferences)
		return cached, nil
	}

	st := s.stripe(userID)
	st.mu.Lock()
	gen := st.gen
	st.mu.Unlock()

	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return models.Profile{}, fmt.Errorf("%s: %w", op, err)
	}
	profile := u.Profile()

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.gen != gen {
		log.Debug("profile changed during read, cache fill skipped")
		return profile, nil
	}
	if err := s.cache.Set(ctx, ProfileKey(userID), profile, ProfileTTL); err != nil {
		log.Warn("cache write failed", sl.Err(err))
	}
	return profile, nil
}

// ReplacePreferences целиком заменяет настройки пользователя.
func (s *Service) ReplacePreferences(ctx context.Context, userID string, preferences map[string]any) error {
	const op = "services.user.ReplacePreferences"

	if err := s.users.ReplacePreferences(ctx, userID, models.NormalizePreferences(preferences)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.refresh(ctx, op, userID, nil)
	return nil
}

// UpdateProfile применяет переданные поля. Новый username нормализуется и проверяется.
// Если имя в хранилище действительно изменилось, выпускается новый токен и публикуется UserRenamed.
// Старые токены остаются действительными до истечения срока.
func (s *Service) UpdateProfile(ctx context.Context, userID string, update models.ProfileUpdate) (*UpdateResult, error) {
	const op = "services.user.UpdateProfile"

	if update.Empty() {
		profile, err := s.CurrentUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		return &UpdateResult{Profile: profile}, nil
	}

	if update.Username != nil {
		name := auth.NormalizeUsername(*update.Username)
		if err := auth.ValidateUsername(name); err != nil {
			return nil, err
		}
		update.Username = &name
	}

	u, previous, err := s.users.UpdateProfile(ctx, userID, update)
	if errors.Is(err, storage.ErrUserExists) {
		return nil, auth.ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	profile := u.Profile()
	s.refresh(ctx, op, userID, &profile)

	res := &UpdateResult{Profile: profile}
	if update.Username == nil || u.Username == previous {
		return res, nil
	}

	res.Token, err = s.tokens.Sign(u.ID, u.Username)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	event := rabbitmq.UserRenamed{UserID: u.ID, OldUsername: previous, NewUsername: u.Username}
	if err := s.events.Publish(ctx, rabbitmq.RoutingUserRenamed, event); err != nil {
		s.log.Warn("failed to publish event",
			sl.Op(op),
			slog.String("routing_key", rabbitmq.RoutingUserRenamed),
			sl.Err(err),
		)
	}
	return res, nil
}

// refresh отмечает изменение записи пользователя и обновляет кеш: кладёт свежий профиль,
// если он известен, иначе удаляет ключ. Чтения, начатые до изменения, кеш уже не заполнят.
func (s *Service) refresh(ctx context.Context, op, userID string, profile *models.Profile) {
	st := s.stripe(userID)
	st.mu.Lock()
	defer st.mu.Unlock()
	st.gen++

	if profile != nil {
		err := s.cache.Set(ctx, ProfileKey(userID), *profile, ProfileTTL)
		if err == nil {
			return
		}
		s.log.Warn("cache write failed", sl.Op(op), sl.Err(err))
	}
	if err := s.cache.Invalidate(ctx, ProfileKey(userID)); err != nil {
		s.log.Warn("cache invalidation failed", sl.Op(op), sl.Err(err))
	}
}
