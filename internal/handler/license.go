package handler

import (
	"errors"
	"license-verification-api/internal/database"
	"license-verification-api/internal/model"
	"license-verification-api/internal/service"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HandleLicenseActivate 首次激活把许可证绑定到机器，同一机器重复激活直接成功
func (h *Handler) HandleLicenseActivate(c *fiber.Ctx) error {
	start := time.Now()

	input := new(model.LicenseRequest)
	if err := c.BodyParser(input); err != nil {
		return invalidRequest(c, nil)
	}
	if errs := h.validateStruct(input); errs != nil {
		return invalidRequest(c, errs)
	}

	err := h.ledger.Activate(c.UserContext(), input.LicenseKey, input.MachineID)

	result := service.UsageResultActivated
	if err != nil {
		result = specFor(err).code
	}
	h.metrics.ObserveActivate(result, time.Since(start))

	if err != nil {
		if result != codeStorageUnavailable {
			h.recordUsage(c, input, model.UsageActionActivate, result)
		}
		h.log.Debug("activation rejected",
			zap.String("license_key", input.LicenseKey),
			zap.String("code", result),
			zap.Error(err))
		return ledgerErrorResponse(c, err)
	}

	h.recordUsage(c, input, model.UsageActionActivate, result)
	h.mirrorLicense(c, input.LicenseKey)

	return c.JSON(fiber.Map{
		"status": "activated",
	})
}

// HandleLicenseVerify 只返回 valid，业务失败一律折叠为 false
func (h *Handler) HandleLicenseVerify(c *fiber.Ctx) error {
	start := time.Now()

	input := new(model.LicenseRequest)
	if err := c.BodyParser(input); err != nil {
		return invalidRequest(c, nil)
	}
	if errs := h.validateStruct(input); errs != nil {
		return invalidRequest(c, errs)
	}

	valid, err := h.ledger.Verify(c.UserContext(), input.LicenseKey, input.MachineID)
	if err != nil {
		h.metrics.ObserveVerify(specFor(err).code, time.Since(start))
		h.log.Warn("verify failed", zap.String("license_key", input.LicenseKey), zap.Error(err))
		return ledgerErrorResponse(c, err)
	}

	result := service.UsageResultInvalid
	if valid {
		result = service.UsageResultValid
	}
	h.metrics.ObserveVerify(result, time.Since(start))
	h.recordUsage(c, input, model.UsageActionVerify, result)

	return c.JSON(fiber.Map{
		"valid": valid,
	})
}

func (h *Handler) recordUsage(c *fiber.Ctx, input *model.LicenseRequest, action, result string) {
	usage := &model.LicenseUsage{
		LicenseKey: input.LicenseKey,
		MachineID:  input.MachineID,
		Action:     action,
		Result:     result,
		IPAddress:  c.IP(),
		UserAgent:  c.Get(fiber.HeaderUserAgent),
		Timestamp:  h.now(),
	}
	if err := service.RecordUsage(c.UserContext(), h.db, usage); err != nil {
		h.log.Warn("record license usage failed", zap.String("license_key", input.LicenseKey), zap.Error(err))
	}
}

// mirrorLicense 同步到 Google Sheet（未启用时跳过）
func (h *Handler) mirrorLicense(c *fiber.Ctx, key string) {
	if h.sheets == nil {
		return
	}
	lic, err := h.licenses.FindLicense(c.UserContext(), key)
	if err != nil {
		h.log.Warn("load license for sheet sync failed", zap.String("license_key", key), zap.Error(err))
		return
	}
	h.sheets.SyncLicenseAsync(*lic)
}

// HandleGetAllLicenses 管理员分页获取许可证，支持 status / machine_id 过滤
func (h *Handler) HandleGetAllLicenses(c *fiber.Ctx) error {
	query := new(model.LicenseListQuery)
	if err := c.QueryParser(query); err != nil {
		return invalidRequest(c, nil)
	}
	if errs := h.validateStruct(query); errs != nil {
		return invalidRequest(c, errs)
	}

	// 设置默认值
	if query.Page < 1 {
		query.Page = 1
	}
	if query.PageSize < 1 {
		query.PageSize = 20
	}
	if query.PageSize > 100 {
		query.PageSize = 100
	}

	licenses, total, err := h.licenses.ListLicenses(c.UserContext(), *query)
	if err != nil {
		h.log.Error("list licenses failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list licenses",
		})
	}

	return c.JSON(fiber.Map{
		"licenses": licenses,
		"total":    total,
		"page":     query.Page,
		"size":     query.PageSize,
	})
}

// HandleLicenseCreate 录入新许可证，未提供 key 时自动生成
func (h *Handler) HandleLicenseCreate(c *fiber.Ctx) error {
	input := new(model.LicenseCreateInput)
	if err := c.BodyParser(input); err != nil {
		return invalidRequest(c, nil)
	}
	if errs := h.validateStruct(input); errs != nil {
		return invalidRequest(c, errs)
	}

	key := strings.TrimSpace(input.LicenseKey)
	if key == "" {
		key = generateLicenseKey()
	}

	lic, err := h.licenses.CreateLicense(c.UserContext(), key, utcPtr(input.ExpiresAt))
	if err != nil {
		if errors.Is(err, database.ErrLicenseExists) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "license already exists",
			})
		}
		h.log.Error("create license failed", zap.String("license_key", key), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to create license",
		})
	}

	h.audit(c, service.ActionCreate, lic.LicenseKey, input)
	h.sheets.SyncLicenseAsync(*lic)

	return c.Status(fiber.StatusCreated).JSON(lic)
}

// HandleGetLicense 获取单个许可证详情
func (h *Handler) HandleGetLicense(c *fiber.Ctx) error {
	key := c.Params("key")
	lic, err := h.licenses.FindLicense(c.UserContext(), key)
	if err != nil {
		return h.adminLicenseError(c, key, err)
	}
	return c.JSON(lic)
}

// HandleLicenseRevoke 吊销许可证，之后 activate / verify 均失败
func (h *Handler) HandleLicenseRevoke(c *fiber.Ctx) error {
	key := c.Params("key")
	lic, err := h.licenses.RevokeLicense(c.UserContext(), key)
	if err != nil {
		return h.adminLicenseError(c, key, err)
	}

	h.audit(c, service.ActionRevoke, key, nil)
	h.sheets.SyncLicenseAsync(*lic)
	return c.JSON(lic)
}

// HandleLicenseReissue 清除机器绑定，允许在新机器上重新激活
func (h *Handler) HandleLicenseReissue(c *fiber.Ctx) error {
	key := c.Params("key")

	previous, err := h.licenses.FindLicense(c.UserContext(), key)
	if err != nil {
		return h.adminLicenseError(c, key, err)
	}

	lic, err := h.licenses.ReissueLicense(c.UserContext(), key)
	if err != nil {
		return h.adminLicenseError(c, key, err)
	}

	h.audit(c, service.ActionReissue, key, fiber.Map{"previous_machine_id": previous.MachineID})
	h.sheets.SyncLicenseAsync(*lic)
	return c.JSON(lic)
}

// HandleLicenseRenew 设置或清除 expires_at
func (h *Handler) HandleLicenseRenew(c *fiber.Ctx) error {
	key := c.Params("key")

	input := new(model.LicenseExpiryInput)
	if err := c.BodyParser(input); err != nil {
		return invalidRequest(c, nil)
	}

	lic, err := h.licenses.SetExpiry(c.UserContext(), key, utcPtr(input.ExpiresAt))
	if err != nil {
		return h.adminLicenseError(c, key, err)
	}

	h.audit(c, service.ActionRenew, key, input)
	h.sheets.SyncLicenseAsync(*lic)
	return c.JSON(lic)
}

// HandleLicenseDelete 删除许可证
func (h *Handler) HandleLicenseDelete(c *fiber.Ctx) error {
	key := c.Params("key")
	if err := h.licenses.DeleteLicense(c.UserContext(), key); err != nil {
		return h.adminLicenseError(c, key, err)
	}

	h.audit(c, service.ActionDelete, key, nil)
	return c.JSON(fiber.Map{
		"message": "license deleted",
	})
}

// maxUsageLimit 单次最多返回的使用记录条数
const maxUsageLimit = 200

// HandleLicenseUsage 查询license使用记录
func (h *Handler) HandleLicenseUsage(c *fiber.Ctx) error {
	key := c.Params("key")
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if limit < 1 {
		limit = 20
	}
	if limit > maxUsageLimit {
		limit = maxUsageLimit
	}

	usages, err := service.GetLicenseUsage(c.UserContext(), h.db, key, limit)
	if err != nil {
		h.log.Error("query license usage failed", zap.String("license_key", key), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to query usage",
		})
	}

	return c.JSON(fiber.Map{
		"usages": usages,
	})
}

// HandleLicenseExport 把全部许可证导出到 Google Sheet
func (h *Handler) HandleLicenseExport(c *fiber.Ctx) error {
	if h.sheets == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{
			"error": "sheet sync is disabled",
		})
	}

	var licenses []model.License
	if err := h.db.WithContext(c.UserContext()).Order("created_at ASC").Find(&licenses).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load licenses",
		})
	}
	if err := h.sheets.ExportLicenses(c.UserContext(), licenses); err != nil {
		h.log.Error("export licenses failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "failed to export licenses",
		})
	}

	h.audit(c, service.ActionExport, "", fiber.Map{"count": len(licenses)})
	return c.JSON(fiber.Map{
		"exported": len(licenses),
	})
}

func (h *Handler) adminLicenseError(c *fiber.Ctx, key string, err error) error {
	if errors.Is(err, database.ErrLicenseNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "license not found",
		})
	}
	h.log.Error("license admin operation failed", zap.String("license_key", key), zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "license operation failed",
	})
}

func (h *Handler) audit(c *fiber.Ctx, action, key string, details interface{}) {
	if err := service.LogOperation(c.UserContext(), h.db, currentUserID(c), action, "license", key, details); err != nil {
		h.log.Warn("write operation log failed", zap.String("action", action), zap.Error(err))
	}
}

// generateLicenseKey 由 UUID 生成 XXXX-XXXX-XXXX-XXXX 形式的密钥
func generateLicenseKey() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return raw[0:4] + "-" + raw[4:8] + "-" + raw[8:12] + "-" + raw[12:16]
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
