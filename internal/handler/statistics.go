package handler

import (
	"license-verification-api/internal/model"
	"license-verification-api/internal/service"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const expiringWindow = 30 * 24 * time.Hour

// HandleLicenseStatistics 处理许可证统计信息请求
func (h *Handler) HandleLicenseStatistics(c *fiber.Ctx) error {
	now := h.now()

	// 解析日期，默认最近30天
	start := now.AddDate(0, 0, -30)
	end := now
	if v := c.Query("start_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return invalidRequest(c, []fieldError{{Field: "start_date", Message: "must be YYYY-MM-DD"}})
		}
		start = t
	}
	if v := c.Query("end_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return invalidRequest(c, []fieldError{{Field: "end_date", Message: "must be YYYY-MM-DD"}})
		}
		// 包含结束日期当天
		end = t.Add(24*time.Hour - time.Nanosecond)
	}

	stats, err := h.collectStatistics(c, now, start, end)
	if err != nil {
		h.log.Error("collect statistics failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to collect statistics",
		})
	}

	return c.JSON(fiber.Map{
		"data": stats,
	})
}

func (h *Handler) collectStatistics(c *fiber.Ctx, now, start, end time.Time) (*model.LicenseStatistics, error) {
	db := h.db.WithContext(c.UserContext())
	stats := &model.LicenseStatistics{
		DailyUsage: make([]model.DailyUsage, 0),
	}

	// 许可证与使用记录计数
	counts := []struct {
		dst   *int64
		table interface{}
		query string
		args  []interface{}
	}{
		{&stats.TotalLicenses, &model.License{}, "1 = 1", nil},
		{&stats.ActiveLicenses, &model.License{}, "status = ?", []interface{}{model.LicenseStatusActive}},
		{&stats.RevokedLicenses, &model.License{}, "status = ?", []interface{}{model.LicenseStatusRevoked}},
		{&stats.BoundLicenses, &model.License{}, "machine_id IS NOT NULL", nil},
		{&stats.UnboundLicenses, &model.License{}, "machine_id IS NULL", nil},
		{&stats.TotalActivations, &model.LicenseUsage{}, "action = ?", []interface{}{model.UsageActionActivate}},
		{&stats.FailedActivations, &model.LicenseUsage{}, "action = ? AND result <> ?", []interface{}{model.UsageActionActivate, service.UsageResultActivated}},
		{&stats.TotalVerifications, &model.LicenseUsage{}, "action = ?", []interface{}{model.UsageActionVerify}},
		{&stats.FailedVerification, &model.LicenseUsage{}, "action = ? AND result <> ?", []interface{}{model.UsageActionVerify, service.UsageResultValid}},
	}
	for _, cnt := range counts {
		if err := db.Model(cnt.table).Where(cnt.query, cnt.args...).Count(cnt.dst).Error; err != nil {
			return nil, err
		}
	}

	// 过期与即将过期（30天内）按请求时刻在内存里判断
	var expiries []time.Time
	if err := db.Model(&model.License{}).
		Where("status = ? AND expires_at IS NOT NULL", model.LicenseStatusActive).
		Pluck("expires_at", &expiries).Error; err != nil {
		return nil, err
	}
	for _, exp := range expiries {
		switch {
		case now.After(exp):
			stats.ExpiredLicenses++
		case exp.Sub(now) <= expiringWindow:
			stats.ExpiringLicenses++
		}
	}

	// 每日使用统计；timestamp 由 service.RecordUsage 以 UTC 写入，区间边界同样转成 UTC 后按文本比较
	var usages []model.LicenseUsage
	if err := db.Select("action", "machine_id", "timestamp").
		Where("timestamp BETWEEN ? AND ?", start.UTC(), end.UTC()).
		Order("timestamp ASC").
		Find(&usages).Error; err != nil {
		return nil, err
	}
	stats.DailyUsage = dailyUsage(usages)
	stats.SuccessRate = stats.GetSuccessRate()

	return stats, nil
}

func dailyUsage(usages []model.LicenseUsage) []model.DailyUsage {
	days := make([]model.DailyUsage, 0)
	index := make(map[string]int)
	machines := make(map[string]map[string]struct{})

	for _, u := range usages {
		day := u.Timestamp.UTC().Format("2006-01-02")
		i, ok := index[day]
		if !ok {
			i = len(days)
			index[day] = i
			days = append(days, model.DailyUsage{Date: day})
			machines[day] = make(map[string]struct{})
		}
		switch u.Action {
		case model.UsageActionActivate:
			days[i].Activations++
		case model.UsageActionVerify:
			days[i].Verifications++
		}
		if u.MachineID != "" {
			machines[day][u.MachineID] = struct{}{}
		}
	}
	for i := range days {
		days[i].Machines = len(machines[days[i].Date])
	}
	return days
}
