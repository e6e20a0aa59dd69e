package register

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/userprefs/internal/http/middlewarectx"
	"github.com/magabrotheeeer/userprefs/internal/models"
	"github.com/magabrotheeeer/userprefs/internal/services/auth"
)

type AuthServiceMock struct {
	mock.Mock
}

func (m *AuthServiceMock) Register(ctx context.Context, reg auth.Registration) (*models.User, error) {
	args := m.Called(ctx, reg)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *AuthServiceMock) Issue(user *models.User) (string, error) {
	args := m.Called(user)
	return args.String(0), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestRegisterHandler_ServeHTTP(t *testing.T) {
	created := &models.User{ID: "id-1", Username: "alice", Email: "alice@example.com", Preferences: map[string]any{}}

	tests := []struct {
		name       string
		body       string
		setupMock  func(m *AuthServiceMock)
		wantStatus int
		wantBody   string
		wantCookie bool
	}{
		{
			name: "success",
			body: `{"username":"Alice","password":"secret1","email":"Alice@Example.com"}`,
			setupMock: func(m *AuthServiceMock) {
				m.On("Register", mock.Anything, auth.Registration{
					Username: "Alice", Password: "secret1", Email: "Alice@Example.com",
				}).Return(created, nil).Once()
				m.On("Issue", created).Return("tok", nil).Once()
			},
			wantStatus: http.StatusCreated,
			wantBody:   `{"userId":"id-1","username":"alice","preferences":{}}`,
			wantCookie: true,
		},
		{
			name: "with preferences",
			body: `{"username":"bob","password":"secret1","email":"bob@example.com","preferences":{"theme":"dark"}}`,
			setupMock: func(m *AuthServiceMock) {
				u := &models.User{ID: "id-2", Username: "bob", Preferences: map[string]any{"theme": "dark"}}
				m.On("Register", mock.Anything, auth.Registration{
					Username: "bob", Password: "secret1", Email: "bob@example.com",
					Preferences: map[string]any{"theme": "dark"},
				}).Return(u, nil).Once()
				m.On("Issue", u).Return("tok", nil).Once()
			},
			wantStatus: http.StatusCreated,
			wantBody:   `{"userId":"id-2","username":"bob","preferences":{"theme":"dark"}}`,
			wantCookie: true,
		},
		{
			name: "non-string username becomes empty",
			body: `{"username":12345,"password":"secret1","email":"x@example.com"}`,
			setupMock: func(m *AuthServiceMock) {
				m.On("Register", mock.Anything, auth.Registration{
					Username: "", Password: "secret1", Email: "x@example.com",
				}).Return(nil, auth.NewValidationError(auth.MsgUsernameTooShort)).Once()
			},
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"Username must be at least 3 characters long"}`,
		},
		{
			name:       "preferences not an object",
			body:       `{"username":"alice","password":"secret1","email":"a@example.com","preferences":[1,2]}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"Preferences must be an object"}`,
		},
		{
			name: "duplicate",
			body: `{"username":"alice","password":"secret1","email":"a@example.com"}`,
			setupMock: func(m *AuthServiceMock) {
				m.On("Register", mock.Anything, mock.Anything).Return(nil, auth.ErrConflict).Once()
			},
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"Username or email already exists"}`,
		},
		{
			name: "store failure",
			body: `{"username":"alice","password":"secret1","email":"a@example.com"}`,
			setupMock: func(m *AuthServiceMock) {
				m.On("Register", mock.Anything, mock.Anything).Return(nil, errors.New("db down")).Once()
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"internal server error"}`,
		},
		{
			name: "token issue fails",
			body: `{"username":"alice","password":"secret1","email":"a@example.com"}`,
			setupMock: func(m *AuthServiceMock) {
				m.On("Register", mock.Anything, mock.Anything).Return(created, nil).Once()
				m.On("Issue", created).Return("", errors.New("no secret")).Once()
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"internal server error"}`,
		},
		{
			name:       "invalid json",
			body:       `{`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"invalid request body"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(AuthServiceMock)
			if tt.setupMock != nil {
				tt.setupMock(svc)
			}
			handler := New(newNoopLogger(), svc, middlewarectx.Cookies{Secure: true})

			req := httptest.NewRequest(http.MethodPost, "/api/register", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.JSONEq(t, tt.wantBody, rr.Body.String())

			cookies := rr.Result().Cookies()
			if tt.wantCookie {
				require.Len(t, cookies, 1)
				assert.Equal(t, "tok", cookies[0].Value)
				assert.True(t, cookies[0].Secure)
			} else {
				assert.Empty(t, cookies)
			}

			if tt.setupMock == nil {
				svc.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
			}
			svc.AssertExpectations(t)
		})
	}
}
