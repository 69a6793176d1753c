package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"license-verification-api/internal/database"
	"license-verification-api/internal/model"
	"license-verification-api/internal/util"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func okHandler(c *fiber.Ctx) error {
	return c.SendString("ok")
}

func TestAuth(t *testing.T) {
	db := database.InitTestDB(t)
	tokens := util.NewTokenIssuer("secret", time.Hour)

	admin := &model.User{Username: "admin", Password: "x", Role: model.RoleAdmin, Status: "active"}
	require.NoError(t, db.Create(admin).Error)
	viewer := &model.User{Username: "viewer", Password: "x", Role: "viewer", Status: "active"}
	require.NoError(t, db.Create(viewer).Error)

	adminToken, err := tokens.GenerateToken(admin.ID)
	require.NoError(t, err)
	viewerToken, err := tokens.GenerateToken(viewer.ID)
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/admin", Auth(tokens), AdminOnly(db), okHandler)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "missing", header: "", wantStatus: fiber.StatusUnauthorized},
		{name: "bad_format", header: "Token " + adminToken, wantStatus: fiber.StatusUnauthorized},
		{name: "bad_token", header: "Bearer nope", wantStatus: fiber.StatusUnauthorized},
		{name: "not_admin", header: "Bearer " + viewerToken, wantStatus: fiber.StatusForbidden},
		{name: "admin", header: "Bearer " + adminToken, wantStatus: fiber.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestRateLimitPassThrough(t *testing.T) {
	app := fiber.New()
	app.Get("/nil", RateLimit(nil, 1, time.Minute, zap.NewNop()), okHandler)

	// Redis 不可达时放行
	down := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { down.Close() })
	app.Get("/down", RateLimit(down, 1, time.Minute, zap.NewNop()), okHandler)

	for _, path := range []string{"/nil", "/nil", "/down", "/down"} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil), 5000)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode, path)
	}
}

func TestRateLimitRejectsOverLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	app := fiber.New()
	app.Post("/activate", RateLimit(rdb, 2, time.Hour, zap.NewNop()), okHandler)

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest("POST", "/activate", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest("POST", "/activate", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "3601", resp.Header.Get(fiber.HeaderRetryAfter))

	// 窗口计数键带过期时间
	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Equal(t, "3", mustGet(t, mr, keys[0]))
	assert.Equal(t, time.Hour+time.Second, mr.TTL(keys[0]))
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}

func TestLogger(t *testing.T) {
	app := fiber.New()
	app.Use(Logger(zap.NewNop()))
	app.Get("/", okHandler)

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
