// Package postgresql реализует хранилище пользователей на основе PostgreSQL.
// Настройки пользователя хранятся в колонке JSONB.
package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/magabrotheeeer/userprefs/internal/models"
	"github.com/magabrotheeeer/userprefs/internal/storage"
)

const userColumns = `uid, username, email, password_hash, preferences, created_at`

// Storage инкапсулирует соединение с базой данных PostgreSQL.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL и проверяет его.
func New(ctx context.Context, storageConnectionString string) (*Storage, error) {
	const op = "storage.postgresql.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// RegisterUser сохраняет нового пользователя в базу данных и возвращает его ID.
func (s *Storage) RegisterUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.postgresql.RegisterUser"

	prefs, err := json.Marshal(models.NormalizePreferences(user.Preferences))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var newID string
	query := `INSERT INTO users (uid, username, email, password_hash, preferences, created_at)
			  VALUES ($1, $2, $3, $4, $5::jsonb, $6)
			  RETURNING uid`
	if err := s.DB.QueryRowContext(ctx, query,
		uuid.NewString(), user.Username, user.Email, user.PasswordHash, string(prefs), createdAt,
	).Scan(&newID); err != nil {
		return "", fmt.Errorf("%s: %w", op, mapError(err))
	}
	return newID, nil
}

// GetUserByUsername возвращает пользователя по его username.
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.postgresql.GetUserByUsername"

	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, username))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUser возвращает пользователя по его UID.
func (s *Storage) GetUser(ctx context.Context, userID string) (*models.User, error) {
	const op = "storage.postgresql.GetUser"

	query := `SELECT ` + userColumns + ` FROM users WHERE uid = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, userID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// ReplacePreferences целиком заменяет настройки пользователя.
func (s *Storage) ReplacePreferences(ctx context.Context, userID string, preferences map[string]any) error {
	const op = "storage.postgresql.ReplacePreferences"

	prefs, err := json.Marshal(models.NormalizePreferences(preferences))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `UPDATE users SET preferences = $1::jsonb WHERE uid = $2`
	res, err := s.DB.ExecContext(ctx, query, string(prefs), userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	return nil
}

// UpdateProfile одним запросом меняет username и/или настройки и возвращает итоговую запись
// и прежний username. Строка блокируется подзапросом, поэтому прежнее значение соответствует этому изменению.
func (s *Storage) UpdateProfile(ctx context.Context, userID string, update models.ProfileUpdate) (*models.User, string, error) {
	const op = "storage.postgresql.UpdateProfile"

	var username, prefs any
	if update.Username != nil {
		username = *update.Username
	}
	if update.Preferences != nil {
		b, err := json.Marshal(update.Preferences)
		if err != nil {
			return nil, "", fmt.Errorf("%s: %w", op, err)
		}
		prefs = string(b)
	}

	query := `UPDATE users AS u
			  SET username = COALESCE($1, u.username),
			      preferences = COALESCE($2::jsonb, u.preferences)
			  FROM (SELECT uid, username FROM users WHERE uid = $3 FOR UPDATE) AS prev
			  WHERE u.uid = prev.uid
			  RETURNING u.uid, u.username, u.email, u.password_hash, u.preferences, u.created_at, prev.username`
	var previous string
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, username, prefs, userID), &previous)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}
	return u, previous, nil
}

// Ping проверяет соединение с базой.
func (s *Storage) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

// Close закрывает пул соединений.
func (s *Storage) Close(_ context.Context) error {
	return s.DB.Close()
}

// scanUser читает колонки userColumns и, если переданы, дополнительные колонки в extra.
func scanUser(row *sql.Row, extra ...any) (*models.User, error) {
	var (
		u     models.User
		prefs []byte
	)
	dest := append([]any{&u.ID, &u.Username, &u.Email, &u.PasswordHash, &prefs, &u.CreatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, mapError(err)
	}
	if len(prefs) > 0 {
		if err := json.Unmarshal(prefs, &u.Preferences); err != nil {
			return nil, fmt.Errorf("decode preferences: %w", err)
		}
	}
	u.Preferences = models.NormalizePreferences(u.Preferences)
	return &u, nil
}

// mapError переводит ошибки драйвера в ошибки пакета storage.
func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrUserNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return storage.ErrUserExists
		case pgerrcode.InvalidTextRepresentation:
			// uid не является UUID, такой записи быть не может
			return storage.ErrUserNotFound
		}
	}
	return err
}
