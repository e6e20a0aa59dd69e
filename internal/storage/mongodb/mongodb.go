// Package mongodb реализует хранилище пользователей на основе MongoDB.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/magabrotheeeer/userprefs/internal/models"
	"github.com/magabrotheeeer/userprefs/internal/storage"
)

type userDocument struct {
	ID           bson.ObjectID  `bson:"_id,omitempty"`
	Username     string         `bson:"username"`
	Email        string         `bson:"email"`
	PasswordHash string         `bson:"password_hash"`
	Preferences  map[string]any `bson:"preferences"`
	CreatedAt    time.Time      `bson:"created_at"`
}

// Storage хранит пользователей в одной коллекции MongoDB.
type Storage struct {
	client *mongo.Client
	users  *mongo.Collection
}

// New подключается к MongoDB, проверяет соединение и создаёт уникальные индексы.
func New(ctx context.Context, uri, database, collection string) (*Storage, error) {
	const op = "storage.mongodb.New"

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s := &Storage{
		client: client,
		users:  client.Database(database).Collection(collection),
	}
	if err = s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}

func (s *Storage) ensureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	return err
}

// RegisterUser сохраняет нового пользователя и возвращает hex-представление его ObjectID.
func (s *Storage) RegisterUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.mongodb.RegisterUser"

	doc := toDocument(user)
	doc.ID = bson.NewObjectID()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("%s: %w", op, mapError(err))
	}
	return doc.ID.Hex(), nil
}

// GetUserByUsername возвращает пользователя по его username.
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.mongodb.GetUserByUsername"

	var doc userDocument
	if err := s.users.FindOne(ctx, bson.M{"username": username}).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return fromDocument(doc), nil
}

// GetUser возвращает пользователя по его ID.
func (s *Storage) GetUser(ctx context.Context, userID string) (*models.User, error) {
	const op = "storage.mongodb.GetUser"

	id, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	var doc userDocument
	if err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return fromDocument(doc), nil
}

// ReplacePreferences целиком заменяет настройки пользователя.
func (s *Storage) ReplacePreferences(ctx context.Context, userID string, preferences map[string]any) error {
	const op = "storage.mongodb.ReplacePreferences"

	id, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	res, err := s.users.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"preferences": models.NormalizePreferences(preferences)}},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	return nil
}

// UpdateProfile атомарно меняет username и/или настройки и возвращает итоговую запись
// и прежний username. Изменение применяется к документу, полученному в состоянии до обновления.
func (s *Storage) UpdateProfile(ctx context.Context, userID string, update models.ProfileUpdate) (*models.User, string, error) {
	const op = "storage.mongodb.UpdateProfile"

	id, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	set := updateSet(update)
	if len(set) == 0 {
		u, err := s.GetUser(ctx, userID)
		if err != nil {
			return nil, "", err
		}
		return u, u.Username, nil
	}

	var doc userDocument
	err = s.users.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&doc)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, mapError(err))
	}
	return applyUpdate(fromDocument(doc), update), doc.Username, nil
}

// Ping проверяет соединение с MongoDB.
func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close закрывает соединение с MongoDB.
func (s *Storage) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// applyUpdate переносит изменения на запись, прочитанную до обновления.
func applyUpdate(u *models.User, update models.ProfileUpdate) *models.User {
	if update.Username != nil {
		u.Username = *update.Username
	}
	if update.Preferences != nil {
		u.Preferences = models.NormalizePreferences(update.Preferences)
	}
	return u
}

func updateSet(update models.ProfileUpdate) bson.M {
	set := bson.M{}
	if update.Username != nil {
		set["username"] = *update.Username
	}
	if update.Preferences != nil {
		set["preferences"] = update.Preferences
	}
	return set
}

func toDocument(u models.User) userDocument {
	return userDocument{
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Preferences:  models.NormalizePreferences(u.Preferences),
		CreatedAt:    u.CreatedAt,
	}
}

func fromDocument(d userDocument) *models.User {
	prefs, _ := plain(d.Preferences).(map[string]any)
	return &models.User{
		ID:           d.ID.Hex(),
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Preferences:  models.NormalizePreferences(prefs),
		CreatedAt:    d.CreatedAt.UTC(),
	}
}

// plain переводит вложенные BSON-документы и массивы в обычные map и slice,
// чтобы настройки одинаково сериализовались в JSON независимо от драйвера.
func plain(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if t == nil {
			return map[string]any(nil)
		}
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = plain(val)
		}
		return out
	case bson.M:
		return plain(map[string]any(t))
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = plain(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = plain(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = plain(val)
		}
		return out
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	default:
		return v
	}
}

func mapError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return storage.ErrUserNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return storage.ErrUserExists
	}
	return err
}
