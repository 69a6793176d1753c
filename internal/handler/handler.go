package handler

import (
	"reflect"
	"strings"
	"time"

	"license-verification-api/internal/database"
	"license-verification-api/internal/ledger"
	"license-verification-api/internal/metrics"
	"license-verification-api/internal/service"
	"license-verification-api/internal/util"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Options 构造 Handler 所需的依赖
type Options struct {
	DB      *gorm.DB
	Tokens  *util.TokenIssuer
	Sheets  *service.SheetSyncService
	Metrics *metrics.Metrics
	Logger  *zap.Logger
	Clock   func() time.Time
}

type Handler struct {
	db       *gorm.DB
	licenses *database.LicenseStore
	ledger   *ledger.Ledger
	tokens   *util.TokenIssuer
	sheets   *service.SheetSyncService
	metrics  *metrics.Metrics
	validate *validator.Validate
	log      *zap.Logger
	now      func() time.Time
}

func New(opts Options) *Handler {
	now := opts.Clock
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}

	store := database.NewLicenseStore(opts.DB)
	return &Handler{
		db:       opts.DB,
		licenses: store,
		ledger:   ledger.New(store, ledger.WithClock(now)),
		tokens:   opts.Tokens,
		sheets:   opts.Sheets,
		metrics:  m,
		validate: newValidator(),
		log:      log,
		now:      now,
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	// 错误信息里使用 json 字段名
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// validateStruct 校验失败时返回字段错误列表
func (h *Handler) validateStruct(v interface{}) []fieldError {
	err := h.validate.Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []fieldError{{Message: err.Error()}}
	}

	out := make([]fieldError, 0, len(verrs))
	for _, fe := range verrs {
		msg := fe.Tag()
		switch fe.Tag() {
		case "required":
			msg = "is required"
		case "max":
			msg = "must be at most " + fe.Param() + " characters"
		case "oneof":
			msg = "must be one of: " + fe.Param()
		}
		out = append(out, fieldError{Field: fe.Field(), Message: msg})
	}
	return out
}

func invalidRequest(c *fiber.Ctx, errs []fieldError) error {
	body := fiber.Map{
		"error": "invalid request",
		"code":  codeInvalidRequest,
	}
	if len(errs) > 0 {
		body["errors"] = errs
	}
	return c.Status(fiber.StatusBadRequest).JSON(body)
}

// currentUserID 由 Auth 中间件写入
func currentUserID(c *fiber.Ctx) uint {
	id, _ := c.Locals("userID").(uint)
	return id
}
