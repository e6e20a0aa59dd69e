package middlewarectx

import "context"

// Key тип для ключей контекста HTTP-запроса.
type Key string

// IdentityKey ключ, под которым guard кладёт Identity в контекст.
const IdentityKey Key = "identity"

// Identity пользователь, подтверждённый сессионным токеном.
type Identity struct {
	UserID   string
	Username string
}

// WithIdentity возвращает контекст с Identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, id)
}

// IdentityFromContext достаёт Identity из контекста.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(IdentityKey).(Identity)
	return id, ok && id.UserID != ""
}
