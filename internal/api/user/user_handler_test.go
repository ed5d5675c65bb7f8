package user

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/fabrico-auth/internal/api/auth"
	"github.com/FACorreiaa/fabrico-auth/internal/types"
)

func TestMe(t *testing.T) {
	handler := NewHandlerImpl(slog.New(slog.NewTextHandler(io.Discard, nil)))

	t.Run("ReturnsPrincipal", func(t *testing.T) {
		u := &types.User{
			ID:           7,
			Name:         "Jane Doe",
			Email:        "jane@example.com",
			PasswordHash: "$2a$10$secret",
			PhoneNumber:  "555",
			Role:         types.RoleUser,
		}
		req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
		req = req.WithContext(auth.WithPrincipal(req.Context(), types.NewPrincipal(u)))
		w := httptest.NewRecorder()

		handler.Me(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp types.UserResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, u.ToResponse(), resp)
		assert.NotContains(t, w.Body.String(), "secret")
	})

	t.Run("NoPrincipal", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
		w := httptest.NewRecorder()

		handler.Me(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"message":"Unauthorized"}`, w.Body.String())
	})
}

func TestNewHandlerImpl_NilLogger(t *testing.T) {
	assert.Panics(t, func() { NewHandlerImpl(nil) })
}
