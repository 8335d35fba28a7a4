package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"creche-backend/internal/auth"
	"creche-backend/internal/config"
	"creche-backend/internal/daycare"
	"creche-backend/internal/models"
	"creche-backend/internal/ratelimit"
	"creche-backend/internal/rules"
	"creche-backend/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type testServer struct {
	app   *fiber.App
	store store.Store
}

func newTestServer(t *testing.T, limiter *ratelimit.FixedWindowLimiter) *testServer {
	t.Helper()
	s := store.NewMemoryStore()
	app := New(Deps{
		Config:  &config.Config{CORSOrigins: "*"},
		Engine:  rules.NewEngine(s, nil),
		Tokens:  auth.NewTokens("server-test-secret-0123456789abcdef", time.Hour),
		Revoker: auth.NewMemoryRevoker(),
		Limiter: limiter,
	})
	return &testServer{app: app, store: s}
}

func (ts *testServer) raw(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (ts *testServer) call(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	resp := ts.raw(t, method, path, token, body)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

type idOnly struct {
	ID uint `json:"id"`
}

func (ts *testServer) register(t *testing.T, name, email, role string) (string, models.User) {
	t.Helper()
	status, env := ts.call(t, http.MethodPost, "/api/auth/register", "", auth.RegisterRequest{
		Name:     name,
		Email:    email,
		Password: "secret123",
		Role:     role,
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	tr := decode[auth.TokenResponse](t, env)
	return tr.Token, tr.User
}

func (ts *testServer) admin(t *testing.T) string {
	t.Helper()
	hash, err := auth.HashPassword("admin-secret")
	require.NoError(t, err)
	require.NoError(t, ts.store.CreateUser(context.Background(), &models.User{
		Name:         "Admin",
		Email:        "admin@creche.test",
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	}))

	status, env := ts.call(t, http.MethodPost, "/api/auth/login", "", auth.LoginRequest{
		Email:    "admin@creche.test",
		Password: "admin-secret",
	})
	require.Equal(t, http.StatusOK, status, env.Message)
	return decode[auth.TokenResponse](t, env).Token
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	status, env := ts.call(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)
}

func TestEnrollmentReviewFlow(t *testing.T) {
	ts := newTestServer(t, nil)
	parentTok, _ := ts.register(t, "Ana", "ana@creche.test", "")
	managerTok, _ := ts.register(t, "Bia", "bia@creche.test", "manager")

	status, env := ts.call(t, http.MethodPost, "/api/daycares", managerTok, map[string]any{
		"name":        "Sunflower",
		"address":     "Rua A, 10",
		"monthly_fee": 900.0,
		"photos":      []string{"a.jpg"},
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	dc := decode[idOnly](t, env)

	status, _ = ts.call(t, http.MethodPost, "/api/daycares", parentTok, map[string]any{"name": "x", "address": "y"})
	assert.Equal(t, http.StatusForbidden, status, "parents cannot register daycares")

	status, env = ts.call(t, http.MethodPost, "/api/children", parentTok, map[string]any{
		"name":       "Leo",
		"birth_date": "2022-03-01",
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	kid := decode[idOnly](t, env)

	status, env = ts.call(t, http.MethodPost, "/api/reviews", parentTok, map[string]any{
		"daycare_id": dc.ID,
		"stars":      5,
	})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, string(rules.KindForbidden), env.Error)

	status, env = ts.call(t, http.MethodPost, "/api/enrollments", parentTok, map[string]any{
		"child_id":   kid.ID,
		"daycare_id": dc.ID,
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	en := decode[models.Enrollment](t, env)
	assert.Equal(t, models.EnrollmentPending, en.Status)

	decidePath := fmt.Sprintf("/api/enrollments/%d/status", en.ID)
	status, _ = ts.call(t, http.MethodPut, decidePath, parentTok, map[string]any{"status": "accepted"})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = ts.call(t, http.MethodPut, decidePath, managerTok, map[string]any{"status": "maybe"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = ts.call(t, http.MethodPut, decidePath, managerTok, map[string]any{"status": "accepted"})
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.Equal(t, models.EnrollmentAccepted, decode[models.Enrollment](t, env).Status)

	status, env = ts.call(t, http.MethodPut, decidePath, managerTok, map[string]any{"status": "rejected"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, string(rules.KindConflict), env.Error)

	status, env = ts.call(t, http.MethodPost, "/api/reviews", parentTok, map[string]any{
		"daycare_id": dc.ID,
		"stars":      5,
		"comment":    "great",
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	created := decode[daycare.ReviewView](t, env)
	assert.True(t, created.Verified)
	require.NotNil(t, created.Author)
	assert.Equal(t, "Ana", created.Author.Name)

	status, env = ts.call(t, http.MethodPost, "/api/reviews", parentTok, map[string]any{
		"daycare_id": dc.ID,
		"stars":      3,
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, string(rules.KindConflict), env.Error)

	status, env = ts.call(t, http.MethodGet, fmt.Sprintf("/api/daycares/%d/reviews/stats", dc.ID), "", nil)
	require.Equal(t, http.StatusOK, status)
	rating := decode[rules.Rating](t, env)
	assert.Equal(t, 1, rating.Total)
	assert.Equal(t, 1, rating.Verified)
	assert.Equal(t, 5.0, rating.Average)

	// Removing the only accepted enrollment clears the verified flag.
	status, _ = ts.call(t, http.MethodDelete, fmt.Sprintf("/api/enrollments/%d", en.ID), managerTok, nil)
	require.Equal(t, http.StatusOK, status)

	status, env = ts.call(t, http.MethodGet, fmt.Sprintf("/api/daycares/%d/reviews?verified=true", dc.ID), "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decode[[]json.RawMessage](t, env))

	status, env = ts.call(t, http.MethodGet, fmt.Sprintf("/api/daycares/%d", dc.ID), "", nil)
	require.Equal(t, http.StatusOK, status)
	var detail struct {
		Name    string             `json:"name"`
		Photos  []models.Photo     `json:"photos"`
		Reviews []models.Review    `json:"reviews"`
		Manager *models.PublicUser `json:"manager"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.Equal(t, "Sunflower", detail.Name)
	assert.Len(t, detail.Photos, 1)
	require.Len(t, detail.Reviews, 1)
	assert.False(t, detail.Reviews[0].Verified)
	require.NotNil(t, detail.Manager)
	assert.Equal(t, "Bia", detail.Manager.Name)
}

func TestProtectedRoutes(t *testing.T) {
	ts := newTestServer(t, nil)

	status, env := ts.call(t, http.MethodGet, "/api/children", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, string(rules.KindUnauthenticated), env.Error)

	status, _ = ts.call(t, http.MethodGet, "/api/children", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	managerTok, _ := ts.register(t, "Bia", "bia@creche.test", "manager")
	status, env = ts.call(t, http.MethodGet, "/api/daycares/mine", managerTok, nil)
	assert.Equal(t, http.StatusOK, status, env.Message)

	status, _ = ts.call(t, http.MethodPost, "/api/children", managerTok, map[string]any{
		"name":       "Leo",
		"birth_date": "2022-03-01",
	})
	assert.Equal(t, http.StatusForbidden, status, "managers do not register children")

	status, _ = ts.call(t, http.MethodGet, "/api/daycares/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = ts.call(t, http.MethodGet, "/api/daycares/999", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRegisterRules(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.register(t, "Ana", "ana@creche.test", "")

	status, _ := ts.call(t, http.MethodPost, "/api/auth/register", "", auth.RegisterRequest{
		Name: "Ana", Email: "ANA@creche.test ", Password: "secret123",
	})
	assert.Equal(t, http.StatusConflict, status, "email is normalized before the uniqueness check")

	status, _ = ts.call(t, http.MethodPost, "/api/auth/register", "", auth.RegisterRequest{
		Name: "Eve", Email: "eve@creche.test", Password: "secret123", Role: "admin",
	})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = ts.call(t, http.MethodPost, "/api/auth/register", "", auth.RegisterRequest{
		Name: "Eve", Email: "eve@creche.test", Password: "123",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = ts.call(t, http.MethodPost, "/api/auth/login", "", auth.LoginRequest{
		Email: "ana@creche.test", Password: "wrong-pass",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestLogoutRevokesToken(t *testing.T) {
	ts := newTestServer(t, nil)
	tok, u := ts.register(t, "Ana", "ana@creche.test", "")

	status, env := ts.call(t, http.MethodGet, "/api/auth/me", tok, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, u.ID, decode[models.User](t, env).ID)

	status, _ = ts.call(t, http.MethodPost, "/api/auth/logout", tok, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = ts.call(t, http.MethodGet, "/api/auth/me", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestBecomeManager(t *testing.T) {
	ts := newTestServer(t, nil)
	tok, _ := ts.register(t, "Ana", "ana@creche.test", "")

	status, env := ts.call(t, http.MethodPost, "/api/users/become-manager", tok, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	tr := decode[auth.TokenResponse](t, env)
	assert.Equal(t, models.RoleManager, tr.User.Role)

	status, _ = ts.call(t, http.MethodPost, "/api/daycares", tr.Token, map[string]any{
		"name": "Sunflower", "address": "Rua A, 10",
	})
	assert.Equal(t, http.StatusCreated, status)

	status, env = ts.call(t, http.MethodGet, "/api/users/profile", tr.Token, nil)
	require.Equal(t, http.StatusOK, status)
	var profile struct {
		Daycares []models.Daycare `json:"daycares"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &profile))
	assert.Len(t, profile.Daycares, 1)
}

func TestAdminRoutes(t *testing.T) {
	ts := newTestServer(t, nil)
	parentTok, parent := ts.register(t, "Ana", "ana@creche.test", "")
	adminTok := ts.admin(t)

	status, _ := ts.call(t, http.MethodGet, "/api/admin/stats", parentTok, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, env := ts.call(t, http.MethodGet, "/api/admin/stats", adminTok, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	var stats struct {
		TotalUsers int64            `json:"total_users"`
		Users      map[string]int64 `json:"users"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, int64(2), stats.TotalUsers)
	assert.Equal(t, int64(1), stats.Users["admin"])
	assert.Equal(t, int64(0), stats.Users["manager"])

	status, env = ts.call(t, http.MethodGet, "/api/admin/users?role=parent", adminTok, nil)
	require.Equal(t, http.StatusOK, status)
	var users struct {
		Users []models.User `json:"users"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &users))
	require.Len(t, users.Users, 1)
	assert.Equal(t, parent.ID, users.Users[0].ID)

	status, _ = ts.call(t, http.MethodGet, "/api/admin/users?role=boss", adminTok, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = ts.call(t, http.MethodDelete, fmt.Sprintf("/api/admin/users/%d", parent.ID), adminTok, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = ts.call(t, http.MethodGet, "/api/auth/me", parentTok, nil)
	assert.Equal(t, http.StatusUnauthorized, status, "deleted accounts lose access immediately")

	status, env = ts.call(t, http.MethodGet, "/api/admin/audit-logs?entity_type=user", adminTok, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]json.RawMessage](t, env), 1)

	resp := ts.raw(t, http.MethodGet, "/api/admin/audit-logs/export", adminTok, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), "spreadsheetml")

	f, err := excelize.OpenReader(resp.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Audit")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "user", rows[1][4])
	assert.Equal(t, "delete", rows[1][6])
}

func TestAuthRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	limiter, err := ratelimit.NewFixedWindowLimiter(client, "test:auth", 2, time.Minute)
	require.NoError(t, err)

	ts := newTestServer(t, limiter)
	login := auth.LoginRequest{Email: "nobody@creche.test", Password: "secret123"}

	for i := 0; i < 2; i++ {
		status, _ := ts.call(t, http.MethodPost, "/api/auth/login", "", login)
		assert.Equal(t, http.StatusUnauthorized, status)
	}
	status, env := ts.call(t, http.MethodPost, "/api/auth/login", "", login)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "rate_limited", env.Error)

	status, _ = ts.call(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, status, "only auth endpoints are limited")
}
