package handler

import (
	"license-verification-api/internal/service"

	"github.com/gofiber/fiber/v2"
)

// HandleGetLogs 管理操作日志，可按 target_id（许可证 key）过滤
func (h *Handler) HandleGetLogs(c *fiber.Ctx) error {
	page, pageSize := pagination(c)

	logs, total, err := service.GetOperationLogs(c.UserContext(), h.db, c.Query("target_id"), page, pageSize)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load logs",
		})
	}

	return c.JSON(fiber.Map{
		"logs":  logs,
		"total": total,
		"page":  page,
	})
}
