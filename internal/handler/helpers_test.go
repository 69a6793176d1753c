package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"license-verification-api/internal/database"
	"license-verification-api/internal/model"
	"license-verification-api/internal/util"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	app     *fiber.App
	db      *gorm.DB
	handler *Handler
	tokens  *util.TokenIssuer
}

func setupTestApp(t *testing.T) *testEnv {
	t.Helper()

	db := database.InitTestDB(t)
	tokens := util.NewTokenIssuer("test-secret", time.Hour)
	h := New(Options{
		DB:     db,
		Tokens: tokens,
		Clock:  func() time.Time { return testNow },
	})

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	h.Register(app, nil)

	return &testEnv{app: app, db: db, handler: h, tokens: tokens}
}

func (e *testEnv) seedLicense(t *testing.T, key string, expiresAt *time.Time) {
	t.Helper()
	_, err := database.NewLicenseStore(e.db).CreateLicense(context.Background(), key, expiresAt)
	require.NoError(t, err)
}

func (e *testEnv) license(t *testing.T, key string) *model.License {
	t.Helper()
	lic, err := database.NewLicenseStore(e.db).FindLicense(context.Background(), key)
	require.NoError(t, err)
	return lic
}

// adminToken 创建 admin 账户并登录
func (e *testEnv) adminToken(t *testing.T) string {
	t.Helper()
	_, err := database.EnsureAdmin(e.db, "admin-password")
	require.NoError(t, err)

	resp, body := e.do(t, "POST", "/api/v1/auth/login", fiber.Map{
		"username": "admin",
		"password": "admin-password",
	}, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	token, ok := body["token"].(string)
	require.True(t, ok)
	return token
}

func (e *testEnv) do(t *testing.T, method, path string, payload interface{}, token string) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, 5000)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := map[string]interface{}{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &body))
	}
	return resp, body
}

func datePtr(year int, month time.Month, day int) *time.Time {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &t
}
