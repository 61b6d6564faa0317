package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hospitalhub/accessgate/internal/middleware"
)

type mockAdminAuth struct {
	mock.Mock
}

func (m *mockAdminAuth) Login(ctx context.Context, username, password string) (string, error) {
	args := m.Called(ctx, username, password)
	return args.String(0), args.Error(1)
}

func (m *mockAdminAuth) Logout(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *mockAdminAuth) SessionTTL() time.Duration {
	return 24 * time.Hour
}

func passthrough(next http.Handler) http.Handler { return next }

func newAdminRouter(auth AdminAuth) http.Handler {
	return NewAdminHandler(auth, fakeAdmin, passthrough, false).Routes()
}

func postJSON(h http.Handler, path string, body any, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	json.NewEncoder(&buf).Encode(body)
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAdminHandler_Login(t *testing.T) {
	t.Run("success sets cookie and returns token", func(t *testing.T) {
		auth := new(mockAdminAuth)
		auth.On("Login", mock.Anything, "alice", "pw").Return("session-token", nil)

		rec := postJSON(newAdminRouter(auth), "/login", map[string]string{"username": "alice", "password": "pw"}, "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, true, resp["success"])
		assert.Equal(t, "session-token", resp["token"])

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, middleware.AdminSessionCookie, cookies[0].Name)
		assert.Equal(t, http.SameSiteStrictMode, cookies[0].SameSite)
		assert.True(t, cookies[0].HttpOnly)
	})

	t.Run("bad credentials", func(t *testing.T) {
		auth := new(mockAdminAuth)
		auth.On("Login", mock.Anything, "alice", "wrong").Return("", nil)

		rec := postJSON(newAdminRouter(auth), "/login", map[string]string{"username": "alice", "password": "wrong"}, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("missing fields", func(t *testing.T) {
		auth := new(mockAdminAuth)
		rec := postJSON(newAdminRouter(auth), "/login", map[string]string{"username": "alice"}, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		auth.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("backend failure", func(t *testing.T) {
		auth := new(mockAdminAuth)
		auth.On("Login", mock.Anything, "alice", "pw").Return("", errors.New("db down"))

		rec := postJSON(newAdminRouter(auth), "/login", map[string]string{"username": "alice", "password": "pw"}, "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestAdminHandler_LogoutAndMe(t *testing.T) {
	auth := new(mockAdminAuth)
	auth.On("Logout", mock.Anything, "tok").Return(nil)
	router := newAdminRouter(auth)

	rec := postJSON(router, "/logout", nil, "tok")
	assert.Equal(t, http.StatusOK, rec.Code)
	auth.AssertExpectations(t)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"alice"`)
}
