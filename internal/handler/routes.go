package handler

import (
	"license-verification-api/internal/database"
	"license-verification-api/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// Register 注册全部路由；limiter 只作用于公开的 activate / verify
func (h *Handler) Register(app *fiber.App, limiter fiber.Handler) {
	if limiter == nil {
		limiter = func(c *fiber.Ctx) error { return c.Next() }
	}

	app.Get("/", h.HandleRoot)
	app.Get("/health", h.HandleHealth)
	app.Get("/metrics", h.metrics.Handler())

	// 公开接口，客户端直接调用
	app.Post("/activate", limiter, h.HandleLicenseActivate)
	app.Post("/verify", limiter, h.HandleLicenseVerify)

	api := app.Group("/api/v1")
	authRequired := middleware.Auth(h.tokens)
	adminOnly := middleware.AdminOnly(h.db)

	// 认证路由
	auth := api.Group("/auth")
	auth.Post("/login", h.HandleUserLogin)
	auth.Post("/validate-token", h.HandleValidateToken)
	auth.Post("/change-password", authRequired, h.HandleChangePassword)
	auth.Get("/login-logs", authRequired, h.HandleGetLoginLogs)

	// 许可证路由
	licenses := api.Group("/licenses")
	licenses.Post("/activate", limiter, h.HandleLicenseActivate)
	licenses.Post("/verify", limiter, h.HandleLicenseVerify)

	// 管理员专用路由，/statistics 与 /export 需在 /:key 之前
	licenses.Get("", authRequired, adminOnly, h.HandleGetAllLicenses)
	licenses.Post("", authRequired, adminOnly, h.HandleLicenseCreate)
	licenses.Get("/statistics", authRequired, adminOnly, h.HandleLicenseStatistics)
	licenses.Post("/export", authRequired, adminOnly, h.HandleLicenseExport)
	licenses.Get("/:key", authRequired, adminOnly, h.HandleGetLicense)
	licenses.Delete("/:key", authRequired, adminOnly, h.HandleLicenseDelete)
	licenses.Post("/:key/revoke", authRequired, adminOnly, h.HandleLicenseRevoke)
	licenses.Post("/:key/reissue", authRequired, adminOnly, h.HandleLicenseReissue)
	licenses.Put("/:key/expiry", authRequired, adminOnly, h.HandleLicenseRenew)
	licenses.Get("/:key/usage", authRequired, adminOnly, h.HandleLicenseUsage)

	api.Get("/logs", authRequired, adminOnly, h.HandleGetLogs)
}

func (h *Handler) HandleRoot(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "License Verification API",
		"status":  "running",
	})
}

// HandleHealth 检查数据库连接
func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	if err := database.Ping(h.db); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
		})
	}
	return c.JSON(fiber.Map{
		"status": "healthy",
	})
}
