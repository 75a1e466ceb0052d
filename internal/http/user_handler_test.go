package httpapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/andreasstove999/storefront-go/internal/auth"
	httpapi "github.com/andreasstove999/storefront-go/internal/http"
	"github.com/andreasstove999/storefront-go/internal/user"
)

type userRepoMock struct {
	CreateFunc     func(ctx context.Context, u *user.User) error
	GetByEmailFunc func(ctx context.Context, email string) (*user.User, error)
	GetByIDFunc    func(ctx context.Context, id string) (*user.User, error)
}

func (m *userRepoMock) Create(ctx context.Context, u *user.User) error {
	return m.CreateFunc(ctx, u)
}

func (m *userRepoMock) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return m.GetByEmailFunc(ctx, email)
}

func (m *userRepoMock) GetByID(ctx context.Context, id string) (*user.User, error) {
	return m.GetByIDFunc(ctx, id)
}

func testTokens() *auth.Tokens {
	return auth.NewTokens("test-secret", time.Hour)
}

func TestRegister(t *testing.T) {
	t.Run("defaults to buyer and issues a verifiable token", func(t *testing.T) {
		var created *user.User
		repo := &userRepoMock{CreateFunc: func(ctx context.Context, u *user.User) error {
			u.ID = "user-1"
			created = u
			return nil
		}}
		handler := httpapi.NewUserHandler(repo, testTokens())

		r := httptest.NewRequest(http.MethodPost, "/api/users/register",
			strings.NewReader(`{"email":"a@example.com","name":"Ada","password":"correct horse"}`))
		w := httptest.NewRecorder()
		handler.Register(w, r)

		require.Equal(t, http.StatusCreated, w.Code)
		require.Equal(t, auth.RoleBuyer, created.Role)
		require.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("correct horse")))

		var resp struct {
			Token string `json:"token"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		id, err := testTokens().Verify(resp.Token)
		require.NoError(t, err)
		require.Equal(t, "user-1", id.UserID)
	})

	t.Run("short password", func(t *testing.T) {
		handler := httpapi.NewUserHandler(&userRepoMock{}, testTokens())

		r := httptest.NewRequest(http.MethodPost, "/api/users/register",
			strings.NewReader(`{"email":"a@example.com","name":"Ada","password":"short"}`))
		w := httptest.NewRecorder()
		handler.Register(w, r)

		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("duplicate email", func(t *testing.T) {
		repo := &userRepoMock{CreateFunc: func(ctx context.Context, u *user.User) error {
			return user.ErrEmailTaken
		}}
		handler := httpapi.NewUserHandler(repo, testTokens())

		r := httptest.NewRequest(http.MethodPost, "/api/users/register",
			strings.NewReader(`{"email":"a@example.com","name":"Ada","password":"correct horse"}`))
		w := httptest.NewRecorder()
		handler.Register(w, r)

		require.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("unknown role", func(t *testing.T) {
		handler := httpapi.NewUserHandler(&userRepoMock{}, testTokens())

		r := httptest.NewRequest(http.MethodPost, "/api/users/register",
			strings.NewReader(`{"email":"a@example.com","name":"Ada","password":"correct horse","role":"admin"}`))
		w := httptest.NewRecorder()
		handler.Register(w, r)

		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	stored := &user.User{ID: "user-1", Email: "a@example.com", Role: auth.RoleBuyer, PasswordHash: string(hash)}

	t.Run("success", func(t *testing.T) {
		repo := &userRepoMock{GetByEmailFunc: func(ctx context.Context, email string) (*user.User, error) {
			return stored, nil
		}}
		handler := httpapi.NewUserHandler(repo, testTokens())

		r := httptest.NewRequest(http.MethodPost, "/api/users/login",
			strings.NewReader(`{"email":"a@example.com","password":"correct horse"}`))
		w := httptest.NewRecorder()
		handler.Login(w, r)

		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("wrong password", func(t *testing.T) {
		repo := &userRepoMock{GetByEmailFunc: func(ctx context.Context, email string) (*user.User, error) {
			return stored, nil
		}}
		handler := httpapi.NewUserHandler(repo, testTokens())

		r := httptest.NewRequest(http.MethodPost, "/api/users/login",
			strings.NewReader(`{"email":"a@example.com","password":"wrong"}`))
		w := httptest.NewRecorder()
		handler.Login(w, r)

		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown email", func(t *testing.T) {
		repo := &userRepoMock{GetByEmailFunc: func(ctx context.Context, email string) (*user.User, error) {
			return nil, user.ErrNotFound
		}}
		handler := httpapi.NewUserHandler(repo, testTokens())

		r := httptest.NewRequest(http.MethodPost, "/api/users/login",
			strings.NewReader(`{"email":"b@example.com","password":"correct horse"}`))
		w := httptest.NewRecorder()
		handler.Login(w, r)

		require.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
