package auth_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/magabrotheeeer/userprefs/internal/lib/jwt"
	"github.com/magabrotheeeer/userprefs/internal/lib/password"
	"github.com/magabrotheeeer/userprefs/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/userprefs/internal/metrics"
	"github.com/magabrotheeeer/userprefs/internal/models"
	"github.com/magabrotheeeer/userprefs/internal/services/auth"
	"github.com/magabrotheeeer/userprefs/internal/storage"
)

// Мок для UserStorage
type UserStorageMock struct {
	mock.Mock
}

func (m *UserStorageMock) RegisterUser(ctx context.Context, user models.User) (string, error) {
	args := m.Called(ctx, user)
	return args.String(0), args.Error(1)
}

func (m *UserStorageMock) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// Мок для EventPublisher
type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

const testSecret = "test-secret"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(t *testing.T, users auth.UserStorage, events auth.EventPublisher) (*auth.Service, *metrics.Metrics) {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	svc := auth.New(
		discardLogger(),
		users,
		password.NewHasher(bcrypt.MinCost),
		jwt.NewJWTMaker(testSecret),
		events,
		m,
	)
	return svc, m
}

func hashOf(t *testing.T, raw string) string {
	t.Helper()
	h, err := password.NewHasher(bcrypt.MinCost).GetHash(raw)
	require.NoError(t, err)
	return h
}

func TestService_Register(t *testing.T) {
	tests := []struct {
		name       string
		reg        auth.Registration
		setupMocks func(r *UserStorageMock, p *PublisherMock)
		wantErr    error
		wantMsg    string
		check      func(t *testing.T, u *models.User)
	}{
		{
			name: "success normalizes username and email",
			reg: auth.Registration{
				Username: "  Alice ",
				Password: "secret1",
				Email:    " Alice@Example.COM ",
			},
			setupMocks: func(r *UserStorageMock, p *PublisherMock) {
				r.On("RegisterUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
					return u.Username == "alice" &&
						u.Email == "alice@example.com" &&
						u.PasswordHash != "" && u.PasswordHash != "secret1" &&
						u.CreatedAt.Location().String() == "UTC" &&
						len(u.Preferences) == 0 && u.Preferences != nil
				})).Return("id-1", nil).Once()
				p.On("Publish", mock.Anything, rabbitmq.RoutingUserRegistered, mock.MatchedBy(func(e rabbitmq.UserRegistered) bool {
					return e.UserID == "id-1" && e.Username == "alice"
				})).Return(nil).Once()
			},
			check: func(t *testing.T, u *models.User) {
				assert.Equal(t, "id-1", u.ID)
				assert.Equal(t, "alice", u.Username)
				assert.Equal(t, "alice@example.com", u.Email)
				assert.NoError(t, password.NewHasher(bcrypt.MinCost).CompareHash(u.PasswordHash, "secret1"))
			},
		},
		{
			name: "preferences kept",
			reg: auth.Registration{
				Username:    "bob",
				Password:    "secret1",
				Email:       "bob@example.com",
				Preferences: map[string]any{"theme": "dark"},
			},
			setupMocks: func(r *UserStorageMock, p *PublisherMock) {
				r.On("RegisterUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
					return u.Preferences["theme"] == "dark"
				})).Return("id-2", nil).Once()
				p.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
			},
			check: func(t *testing.T, u *models.User) {
				assert.Equal(t, map[string]any{"theme": "dark"}, u.Preferences)
			},
		},
		{
			name:    "short username",
			reg:     auth.Registration{Username: "  ab ", Password: "secret1", Email: "ab@example.com"},
			wantMsg: auth.MsgUsernameTooShort,
		},
		{
			name:    "empty username wins over every other rule",
			reg:     auth.Registration{Username: "", Password: "", Email: "nope"},
			wantMsg: auth.MsgUsernameTooShort,
		},
		{
			name:    "short password",
			reg:     auth.Registration{Username: "carol", Password: "12345", Email: "bad"},
			wantMsg: auth.MsgPasswordTooShort,
		},
		{
			name:    "malformed email",
			reg:     auth.Registration{Username: "carol", Password: "secret1", Email: "carol@example"},
			wantMsg: auth.MsgInvalidEmail,
		},
		{
			name:    "email with whitespace inside",
			reg:     auth.Registration{Username: "carol", Password: "secret1", Email: "ca rol@example.com"},
			wantMsg: auth.MsgInvalidEmail,
		},
		{
			name:    "password over bcrypt limit",
			reg:     auth.Registration{Username: "carol", Password: strings.Repeat("p", 73), Email: "carol@example.com"},
			wantMsg: auth.MsgPasswordTooLong,
		},
		{
			name: "duplicate username or email",
			reg:  auth.Registration{Username: "Alice", Password: "secret1", Email: "alice@example.com"},
			setupMocks: func(r *UserStorageMock, _ *PublisherMock) {
				r.On("RegisterUser", mock.Anything, mock.Anything).
					Return("", storage.ErrUserExists).Once()
			},
			wantErr: auth.ErrConflict,
		},
		{
			name: "storage failure",
			reg:  auth.Registration{Username: "dave", Password: "secret1", Email: "dave@example.com"},
			setupMocks: func(r *UserStorageMock, _ *PublisherMock) {
				r.On("RegisterUser", mock.Anything, mock.Anything).
					Return("", errors.New("db is down")).Once()
			},
			wantMsg: "db is down",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserStorageMock)
			pub := new(PublisherMock)
			if tt.setupMocks != nil {
				tt.setupMocks(repo, pub)
			}
			svc, _ := newService(t, repo, pub)

			got, err := svc.Register(context.Background(), tt.reg)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
			case tt.wantMsg != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantMsg)
				assert.Nil(t, got)
			default:
				require.NoError(t, err)
				tt.check(t, got)
			}

			if tt.setupMocks == nil {
				repo.AssertNotCalled(t, "RegisterUser", mock.Anything, mock.Anything)
			}
			repo.AssertExpectations(t)
			pub.AssertExpectations(t)
		})
	}
}

func TestService_Register_ValidationErrorType(t *testing.T) {
	svc, m := newService(t, new(UserStorageMock), nil)

	_, err := svc.Register(context.Background(), auth.Registration{Username: "x"})
	var verr *auth.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, auth.MsgUsernameTooShort, verr.Message)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Registrations.WithLabelValues(metrics.ResultInvalid)))
}

func TestService_Register_PublishFailureIgnored(t *testing.T) {
	repo := new(UserStorageMock)
	pub := new(PublisherMock)
	repo.On("RegisterUser", mock.Anything, mock.Anything).Return("id-9", nil).Once()
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

	svc, _ := newService(t, repo, pub)
	u, err := svc.Register(context.Background(), auth.Registration{
		Username: "erin", Password: "secret1", Email: "erin@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "id-9", u.ID)
}

func TestService_Login(t *testing.T) {
	stored := &models.User{
		ID:           "id-1",
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: hashOf(t, "correctpassword"),
		Preferences:  map[string]any{"theme": "dark"},
	}

	tests := []struct {
		name       string
		username   string
		password   string
		setupMocks func(r *UserStorageMock)
		wantErr    error
		wantOther  bool
	}{
		{
			name:     "success with normalized username",
			username: "  ALICE ",
			password: "correctpassword",
			setupMocks: func(r *UserStorageMock) {
				r.On("GetUserByUsername", mock.Anything, "alice").Return(stored, nil).Once()
			},
		},
		{
			name:     "wrong password",
			username: "alice",
			password: "wrongpassword",
			setupMocks: func(r *UserStorageMock) {
				r.On("GetUserByUsername", mock.Anything, "alice").Return(stored, nil).Once()
			},
			wantErr: auth.ErrInvalidCredentials,
		},
		{
			name:     "password longer than bcrypt accepts",
			username: "alice",
			password: strings.Repeat("x", 100),
			setupMocks: func(r *UserStorageMock) {
				r.On("GetUserByUsername", mock.Anything, "alice").Return(stored, nil).Once()
			},
			wantErr: auth.ErrInvalidCredentials,
		},
		{
			name:     "unknown user",
			username: "mallory",
			password: "whatever",
			setupMocks: func(r *UserStorageMock) {
				r.On("GetUserByUsername", mock.Anything, "mallory").Return(nil, storage.ErrUserNotFound).Once()
			},
			wantErr: auth.ErrInvalidCredentials,
		},
		{
			name:     "storage failure",
			username: "alice",
			password: "correctpassword",
			setupMocks: func(r *UserStorageMock) {
				r.On("GetUserByUsername", mock.Anything, "alice").Return(nil, errors.New("timeout")).Once()
			},
			wantOther: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserStorageMock)
			tt.setupMocks(repo)
			svc, _ := newService(t, repo, nil)

			res, err := svc.Login(context.Background(), tt.username, tt.password)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, res)
			case tt.wantOther:
				require.Error(t, err)
				assert.NotErrorIs(t, err, auth.ErrInvalidCredentials)
			default:
				require.NoError(t, err)
				claims, err := jwt.NewJWTMaker(testSecret).Verify(res.Token)
				require.NoError(t, err)
				assert.Equal(t, stored.ID, claims.UserID)
				assert.Equal(t, stored.Username, claims.Username)
				assert.Equal(t, stored.Preferences, res.User.Preferences)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestService_Login_SameErrorForUnknownUserAndWrongPassword(t *testing.T) {
	repo := new(UserStorageMock)
	repo.On("GetUserByUsername", mock.Anything, "alice").
		Return(&models.User{ID: "id-1", Username: "alice", PasswordHash: hashOf(t, "correctpassword")}, nil)
	repo.On("GetUserByUsername", mock.Anything, "ghost").Return(nil, storage.ErrUserNotFound)

	svc, m := newService(t, repo, nil)

	_, errWrong := svc.Login(context.Background(), "alice", "nope-nope")
	_, errUnknown := svc.Login(context.Background(), "ghost", "nope-nope")

	require.Error(t, errWrong)
	require.Error(t, errUnknown)
	assert.Equal(t, errWrong.Error(), errUnknown.Error())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LoginAttempts.WithLabelValues(metrics.ResultInvalid)))
}

func TestService_Login_MissingSecret(t *testing.T) {
	repo := new(UserStorageMock)
	repo.On("GetUserByUsername", mock.Anything, "alice").
		Return(&models.User{ID: "id-1", Username: "alice", PasswordHash: hashOf(t, "correctpassword")}, nil)

	svc := auth.New(discardLogger(), repo, password.NewHasher(bcrypt.MinCost), jwt.NewJWTMaker(""), nil, nil)

	_, err := svc.Login(context.Background(), "alice", "correctpassword")
	assert.ErrorIs(t, err, jwt.ErrMissingSecret)
}

func TestService_Issue(t *testing.T) {
	repo := new(UserStorageMock)
	svc, m := newService(t, repo, nil)

	token, err := svc.Issue(&models.User{ID: "id-1", Username: "alice"})
	require.NoError(t, err)

	claims, err := jwt.NewJWTMaker(testSecret).Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "id-1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)

	repo.AssertNotCalled(t, "GetUserByUsername", mock.Anything, mock.Anything)
	assert.Equal(t, 0, testutil.CollectAndCount(m.LoginAttempts))
}

func TestService_Issue_MissingSecret(t *testing.T) {
	svc := auth.New(discardLogger(), new(UserStorageMock), password.NewHasher(bcrypt.MinCost), jwt.NewJWTMaker(""), nil, nil)

	_, err := svc.Issue(&models.User{ID: "id-1", Username: "alice"})
	assert.ErrorIs(t, err, jwt.ErrMissingSecret)
}
