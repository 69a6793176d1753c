package handler

import (
	"errors"

	"license-verification-api/internal/ledger"

	"github.com/gofiber/fiber/v2"
)

const (
	codeInvalidRequest     = "INVALID_REQUEST"
	codeInvalidLicense     = "INVALID_LICENSE"
	codeLicenseRevoked     = "LICENSE_REVOKED"
	codeLicenseExpired     = "LICENSE_EXPIRED"
	codeAlreadyActivated   = "ALREADY_ACTIVATED"
	codeStorageUnavailable = "STORAGE_UNAVAILABLE"
	codeInternal           = "INTERNAL_ERROR"
)

type errorSpec struct {
	status  int
	code    string
	message string
}

// 四种业务失败沿用同一个 400，客户端用 code 区分
var ledgerErrors = map[ledger.Kind]errorSpec{
	ledger.KindInvalidInput:     {fiber.StatusBadRequest, codeInvalidRequest, "invalid request"},
	ledger.KindInvalidLicense:   {fiber.StatusBadRequest, codeInvalidLicense, "Invalid license"},
	ledger.KindLicenseRevoked:   {fiber.StatusBadRequest, codeLicenseRevoked, "License revoked"},
	ledger.KindLicenseExpired:   {fiber.StatusBadRequest, codeLicenseExpired, "License expired"},
	ledger.KindAlreadyActivated: {fiber.StatusBadRequest, codeAlreadyActivated, "License already activated"},
	ledger.KindStorage:          {fiber.StatusServiceUnavailable, codeStorageUnavailable, "storage unavailable, retry later"},
}

func specFor(err error) errorSpec {
	if spec, ok := ledgerErrors[ledger.KindOf(err)]; ok {
		return spec
	}
	return errorSpec{fiber.StatusInternalServerError, codeInternal, "internal error"}
}

func ledgerErrorResponse(c *fiber.Ctx, err error) error {
	spec := specFor(err)
	if spec.status == fiber.StatusServiceUnavailable {
		c.Set(fiber.HeaderRetryAfter, "1")
	}
	// detail 与旧版客户端解析的字段保持一致
	return c.Status(spec.status).JSON(fiber.Map{
		"error":  spec.message,
		"detail": spec.message,
		"code":   spec.code,
	})
}

// ErrorHandler fiber 全局错误处理
func ErrorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}
