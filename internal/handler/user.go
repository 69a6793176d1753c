package handler

import (
	"errors"
	"license-verification-api/internal/model"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

func (h *Handler) HandleUserLogin(c *fiber.Ctx) error {
	input := new(LoginInput)
	if err := c.BodyParser(input); err != nil {
		return invalidRequest(c, nil)
	}
	if errs := h.validateStruct(input); errs != nil {
		return invalidRequest(c, errs)
	}

	var user model.User
	result := h.db.WithContext(c.UserContext()).Where("username = ?", input.Username).First(&user)
	if result.Error != nil {
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			h.log.Error("load user failed", zap.Error(result.Error))
		}
		h.recordLogin(c, 0, input.Username, "failed")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "invalid username or password",
		})
	}

	// 验证密码
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil || user.Status != "active" {
		h.recordLogin(c, user.ID, user.Username, "failed")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "invalid username or password",
		})
	}

	h.recordLogin(c, user.ID, user.Username, "success")
	// 更新用户最后登录时间
	now := h.now()
	h.db.WithContext(c.UserContext()).Model(&user).Update("last_login", now)

	token, err := h.tokens.GenerateToken(user.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to issue token",
		})
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user": fiber.Map{
			"id":         user.ID,
			"username":   user.Username,
			"role":       user.Role,
			"last_login": now,
		},
	})
}

func (h *Handler) recordLogin(c *fiber.Ctx, userID uint, username, status string) {
	loginLog := &model.LoginLog{
		UserID:    userID,
		Username:  username,
		IP:        c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
		Status:    status,
		CreatedAt: h.now(),
	}
	if err := h.db.WithContext(c.UserContext()).Create(loginLog).Error; err != nil {
		h.log.Warn("write login log failed", zap.Error(err))
	}
}

// HandleValidateToken 验证token的有效性
func (h *Handler) HandleValidateToken(c *fiber.Ctx) error {
	type TokenInput struct {
		Token string `json:"token"`
	}

	input := new(TokenInput)
	if err := c.BodyParser(input); err != nil || input.Token == "" {
		return invalidRequest(c, nil)
	}

	userID, err := h.tokens.ValidateToken(input.Token)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"valid": false,
		})
	}

	return c.JSON(fiber.Map{
		"valid":   true,
		"user_id": userID,
	})
}

func (h *Handler) HandleChangePassword(c *fiber.Ctx) error {
	input := new(ChangePasswordInput)
	if err := c.BodyParser(input); err != nil {
		return invalidRequest(c, nil)
	}
	if errs := h.validateStruct(input); errs != nil {
		return invalidRequest(c, errs)
	}

	var user model.User
	result := h.db.WithContext(c.UserContext()).First(&user, currentUserID(c))
	if result.Error != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "user not found",
		})
	}

	// 验证当前密码
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.CurrentPassword)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "current password is incorrect",
		})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to hash password",
		})
	}

	if err := h.db.WithContext(c.UserContext()).Model(&user).Update("password", string(hashedPassword)).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to update password",
		})
	}

	return c.JSON(fiber.Map{
		"message": "password updated",
	})
}

func (h *Handler) HandleGetLoginLogs(c *fiber.Ctx) error {
	page, pageSize := pagination(c)

	var logs []model.LoginLog
	var total int64

	db := h.db.WithContext(c.UserContext()).Model(&model.LoginLog{}).Where("user_id = ?", currentUserID(c))

	if err := db.Count(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to count login logs",
		})
	}

	offset := (page - 1) * pageSize
	if err := db.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&logs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load login logs",
		})
	}

	return c.JSON(fiber.Map{
		"logs":  logs,
		"total": total,
		"page":  page,
		"size":  pageSize,
	})
}

// pagination 获取分页参数，page_size 最大 100
func pagination(c *fiber.Ctx) (int, int) {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "10"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
