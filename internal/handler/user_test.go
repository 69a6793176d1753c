package handler

import (
	"testing"

	"license-verification-api/internal/model"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleUserLogin(t *testing.T) {
	env := setupTestApp(t)
	env.adminToken(t)

	tests := []struct {
		name       string
		input      fiber.Map
		wantStatus int
	}{
		{
			name:       "valid_login",
			input:      fiber.Map{"username": "admin", "password": "admin-password"},
			wantStatus: fiber.StatusOK,
		},
		{
			name:       "wrong_password",
			input:      fiber.Map{"username": "admin", "password": "nope"},
			wantStatus: fiber.StatusUnauthorized,
		},
		{
			name:       "unknown_user",
			input:      fiber.Map{"username": "ghost", "password": "nope"},
			wantStatus: fiber.StatusUnauthorized,
		},
		{
			name:       "missing_password",
			input:      fiber.Map{"username": "admin"},
			wantStatus: fiber.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := env.do(t, "POST", "/api/v1/auth/login", tt.input, "")
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}

	var logs []model.LoginLog
	require.NoError(t, env.db.Find(&logs).Error)
	// adminToken 的一次 + 上面的三次有效请求
	assert.Len(t, logs, 4)
}

func TestHandleValidateToken(t *testing.T) {
	env := setupTestApp(t)
	token := env.adminToken(t)

	resp, body := env.do(t, "POST", "/api/v1/auth/validate-token", fiber.Map{"token": token}, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["valid"])

	resp, body = env.do(t, "POST", "/api/v1/auth/validate-token", fiber.Map{"token": "garbage"}, "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, false, body["valid"])
}

func TestHandleChangePassword(t *testing.T) {
	env := setupTestApp(t)
	token := env.adminToken(t)

	resp, _ := env.do(t, "POST", "/api/v1/auth/change-password", fiber.Map{
		"current_password": "wrong",
		"new_password":     "new-password-1",
	}, token)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(t, "POST", "/api/v1/auth/change-password", fiber.Map{
		"current_password": "admin-password",
		"new_password":     "short",
	}, token)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, "POST", "/api/v1/auth/change-password", fiber.Map{
		"current_password": "admin-password",
		"new_password":     "new-password-1",
	}, token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, "POST", "/api/v1/auth/login", fiber.Map{"username": "admin", "password": "new-password-1"}, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestHandleGetLoginLogs(t *testing.T) {
	env := setupTestApp(t)
	token := env.adminToken(t)

	resp, body := env.do(t, "GET", "/api/v1/auth/login-logs?page_size=5", nil, token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["total"])
	assert.Equal(t, float64(5), body["size"])
}
