package preferences

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

	"github.com/magabrotheeeer/userprefs/internal/http/middlewarectx"
	"github.com/magabrotheeeer/userprefs/internal/storage"
)

type UserServiceMock struct {
	mock.Mock
}

func (m *UserServiceMock) ReplacePreferences(ctx context.Context, userID string, preferences map[string]any) error {
	args := m.Called(ctx, userID, preferences)
	return args.Error(0)
}

func TestPreferencesHandler_ServeHTTP(t *testing.T) {
	alice := &middlewarectx.Identity{UserID: "id-1", Username: "alice"}

	tests := []struct {
		name       string
		identity   *middlewarectx.Identity
		body       string
		setupMock  func(m *UserServiceMock)
		wantStatus int
		wantBody   string
	}{
		{
			name:     "replace",
			identity: alice,
			body:     `{"preferences":{"theme":"dark","nested":{"a":[1,2]}}}`,
			setupMock: func(m *UserServiceMock) {
				m.On("ReplacePreferences", mock.Anything, "id-1", map[string]any{
					"theme":  "dark",
					"nested": map[string]any{"a": []any{float64(1), float64(2)}},
				}).Return(nil).Once()
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"message":"Preferences updated"}`,
		},
		{
			name:       "array body",
			identity:   alice,
			body:       `{"preferences":["dark"]}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"Preferences must be an object"}`,
		},
		{
			name:       "string body",
			identity:   alice,
			body:       `{"preferences":"dark"}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"Preferences must be an object"}`,
		},
		{
			name:       "null preferences",
			identity:   alice,
			body:       `{"preferences":null}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"Preferences must be an object"}`,
		},
		{
			name:       "missing preferences",
			identity:   alice,
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"Preferences must be an object"}`,
		},
		{
			name:       "no identity",
			body:       `{"preferences":{}}`,
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"Authentication required"}`,
		},
		{
			name:     "user vanished",
			identity: alice,
			body:     `{"preferences":{}}`,
			setupMock: func(m *UserServiceMock) {
				m.On("ReplacePreferences", mock.Anything, "id-1", map[string]any{}).Return(storage.ErrUserNotFound).Once()
			},
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"User not found"}`,
		},
		{
			name:     "store failure",
			identity: alice,
			body:     `{"preferences":{}}`,
			setupMock: func(m *UserServiceMock) {
				m.On("ReplacePreferences", mock.Anything, "id-1", map[string]any{}).Return(errors.New("db down")).Once()
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"internal server error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(UserServiceMock)
			if tt.setupMock != nil {
				tt.setupMock(svc)
			}
			h := New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)

			req := httptest.NewRequest(http.MethodPost, "/api/preferences", bytes.NewBufferString(tt.body))
			if tt.identity != nil {
				req = req.WithContext(middlewarectx.WithIdentity(req.Context(), *tt.identity))
			}
			rr := httptest.NewRecorder()

			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.JSONEq(t, tt.wantBody, rr.Body.String())
			if tt.setupMock == nil {
				svc.AssertNotCalled(t, "ReplacePreferences", mock.Anything, mock.Anything, mock.Anything)
			}
			svc.AssertExpectations(t)
		})
	}
}
