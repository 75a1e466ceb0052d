package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokensRoundTrip(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)

	signed, err := tokens.Issue("user-1", RoleSeller)
	require.NoError(t, err)

	id, err := tokens.Verify(signed)
	require.NoError(t, err)
	require.Equal(t, "user-1", id.UserID)
	require.Equal(t, RoleSeller, id.Role)
}

func TestTokensRejectsWrongSecret(t *testing.T) {
	signed, err := NewTokens("secret-a", time.Hour).Issue("user-1", RoleBuyer)
	require.NoError(t, err)

	_, err = NewTokens("secret-b", time.Hour).Verify(signed)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokensRejectsExpired(t *testing.T) {
	tokens := NewTokens("test-secret", time.Nanosecond)

	signed, err := tokens.Issue("user-1", RoleBuyer)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	_, err = tokens.Verify(signed)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokensRejectsGarbage(t *testing.T) {
	_, err := NewTokens("test-secret", time.Hour).Verify("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestMiddlewareResolvesIdentity(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)
	signed, err := tokens.Issue("user-1", RoleBuyer)
	require.NoError(t, err)

	var got Identity
	var ok bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = From(r.Context())
	})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+signed)
	Middleware(tokens)(next).ServeHTTP(httptest.NewRecorder(), r)

	require.True(t, ok)
	require.Equal(t, "user-1", got.UserID)
}

func TestMiddlewarePassesThroughWithoutToken(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)

	var ok bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok = From(r.Context())
	})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	Middleware(tokens)(next).ServeHTTP(w, r)

	require.False(t, ok)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAuth(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("no identity", func(t *testing.T) {
		w := httptest.NewRecorder()
		RequireAuth(next).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("with identity", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r = r.WithContext(WithIdentity(r.Context(), Identity{UserID: "u1", Role: RoleBuyer}))
		w := httptest.NewRecorder()
		RequireAuth(next).ServeHTTP(w, r)
		require.Equal(t, http.StatusNoContent, w.Code)
	})
}

func TestRequireRole(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	sellerOnly := RequireRole(RoleSeller)(next)

	t.Run("wrong role", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		r = r.WithContext(WithIdentity(r.Context(), Identity{UserID: "u1", Role: RoleBuyer}))
		w := httptest.NewRecorder()
		sellerOnly.ServeHTTP(w, r)
		require.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("matching role", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		r = r.WithContext(WithIdentity(r.Context(), Identity{UserID: "s1", Role: RoleSeller}))
		w := httptest.NewRecorder()
		sellerOnly.ServeHTTP(w, r)
		require.Equal(t, http.StatusNoContent, w.Code)
	})
}
