package middleware

import (
	"license-verification-api/internal/model"
	"license-verification-api/internal/util"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func Auth(tokens *util.TokenIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing authorization token",
			})
		}

		// 获取 Bearer token
		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid authorization format",
			})
		}

		userID, err := tokens.ValidateToken(tokenParts[1])
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid authorization token",
			})
		}

		// 将用户ID存储在上下文中
		c.Locals("userID", userID)
		return c.Next()
	}
}

func AdminOnly(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals("userID").(uint)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "not authenticated",
			})
		}

		// 从数据库获取用户信息并检查角色
		var user model.User
		result := db.WithContext(c.UserContext()).First(&user, userID)
		if result.Error != nil || user.Role != model.RoleAdmin || user.Status != "active" {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "admin privileges required",
			})
		}

		return c.Next()
	}
}
