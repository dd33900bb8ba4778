package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/watchstore/internal/user/application"
	"github.com/dmehra2102/watchstore/internal/user/domain"
	"github.com/dmehra2102/watchstore/pkg/apperr"
	"github.com/dmehra2102/watchstore/pkg/auth"
	"github.com/dmehra2102/watchstore/pkg/pagination"
)

const secret = "user-handler-secret"

var ada = domain.User{
	ID:        uuid.MustParse("6a1d8c52-0c5e-4d0e-9d7a-3f4b2a9e0b11"),
	Email:     "ada@example.com",
	FirstName: "Ada",
	LastName:  "Lovelace",
	Role:      auth.RoleCustomer,
	IsActive:  true,
	CreatedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
}

type stubService struct {
	search string
	page   pagination.Request
	update domain.ProfileUpdate
	users  map[uuid.UUID]domain.User
}

func (s *stubService) List(_ context.Context, search string, page pagination.Request) (application.UserPage, error) {
	s.search, s.page = search, page
	return application.UserPage{Users: []domain.User{ada}, Pagination: pagination.NewMeta(page, 1)}, nil
}

func (s *stubService) Profile(_ context.Context, id uuid.UUID) (domain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, apperr.NotFound("User not found")
	}
	return u, nil
}

func (s *stubService) UpdateProfile(ctx context.Context, id uuid.UUID, p domain.ProfileUpdate) (domain.User, error) {
	s.update = p
	u, err := s.Profile(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	if err := u.ApplyProfile(p); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func newRouter(svc UserService) http.Handler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(log, svc)
	authn := auth.Authenticate(log, auth.NewJWTVerifier(secret), nil)

	r := chi.NewRouter()
	r.Mount("/auth", h.Routes(authn))
	r.Route("/admin", func(r chi.Router) {
		r.Use(authn, auth.RequireAdmin())
		h.AdminRoutes(r)
	})
	return r
}

func token(t *testing.T, user uuid.UUID, role auth.Role) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		UserID:           user.String(),
		Role:             role,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	s, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func call(t *testing.T, h http.Handler, method, path, tok, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func TestAdminList(t *testing.T) {
	svc := &stubService{}
	admin := uuid.New()

	code, body := call(t, newRouter(svc), http.MethodGet, "/admin/users?search=ada&page=2&limit=99", token(t, admin, auth.RoleAdmin), "")
	require.Equal(t, http.StatusOK, code)

	assert.Equal(t, "ada", svc.search)
	assert.Equal(t, pagination.Request{Page: 2, Limit: 50}, svc.page)
	assert.Equal(t, "Users retrieved successfully", body["message"])

	users := body["data"].(map[string]any)["users"].([]any)
	require.Len(t, users, 1)
	first := users[0].(map[string]any)
	assert.Equal(t, "ada@example.com", first["email"])
	assert.NotContains(t, first, "phone")

	code, _ = call(t, newRouter(svc), http.MethodGet, "/admin/users", token(t, ada.ID, auth.RoleCustomer), "")
	assert.Equal(t, http.StatusForbidden, code)
}

func TestProfile(t *testing.T) {
	svc := &stubService{users: map[uuid.UUID]domain.User{ada.ID: ada}}
	h := newRouter(svc)

	code, body := call(t, h, http.MethodGet, "/auth/profile", token(t, ada.ID, auth.RoleCustomer), "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Profile retrieved successfully", body["message"])
	user := body["data"].(map[string]any)["user"].(map[string]any)
	assert.Equal(t, ada.ID.String(), user["id"])

	code, _ = call(t, h, http.MethodGet, "/auth/profile", "", "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body = call(t, h, http.MethodGet, "/auth/profile", token(t, uuid.New(), auth.RoleCustomer), "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "User not found", body["message"])
}

func TestUpdateProfile(t *testing.T) {
	svc := &stubService{users: map[uuid.UUID]domain.User{ada.ID: ada}}
	h := newRouter(svc)
	tok := token(t, ada.ID, auth.RoleCustomer)

	code, body := call(t, h, http.MethodPut, "/auth/profile", tok,
		`{"firstName":" Augusta ","phone":"+441234567890","email":"evil@example.com","role":"admin"}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "Profile updated successfully", body["message"])
	user := body["data"].(map[string]any)["user"].(map[string]any)
	assert.Equal(t, "Augusta", user["firstName"])
	assert.Equal(t, "Lovelace", user["lastName"])
	assert.Equal(t, "+441234567890", user["phone"])
	assert.Equal(t, "ada@example.com", user["email"])
	assert.Equal(t, "customer", user["role"])
	assert.Nil(t, svc.update.LastName)

	code, body = call(t, h, http.MethodPut, "/auth/profile", tok, `{"phone":"12"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Validation failed", body["message"])
	assert.Equal(t, "Please provide a valid phone number (10-15 digits)", body["error"])

	code, _ = call(t, h, http.MethodPut, "/auth/profile", tok, `{`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAdminProfile(t *testing.T) {
	root := domain.User{ID: uuid.New(), Email: "root@example.com", FirstName: "Root", LastName: "Admin", Role: auth.RoleSuperAdmin, IsActive: true}
	svc := &stubService{users: map[uuid.UUID]domain.User{root.ID: root}}
	h := newRouter(svc)

	code, body := call(t, h, http.MethodGet, "/admin/profile", token(t, root.ID, auth.RoleSuperAdmin), "")
	require.Equal(t, http.StatusOK, code)
	admin := body["data"].(map[string]any)["admin"].(map[string]any)
	assert.Equal(t, "root@example.com", admin["email"])
	assert.Equal(t, "super-admin", admin["role"])

	code, body = call(t, h, http.MethodGet, "/admin/profile", token(t, uuid.New(), auth.RoleAdmin), "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Admin not found", body["message"])
}
