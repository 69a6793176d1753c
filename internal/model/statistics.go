package model

import "time"

// DailyUsage 每日使用统计
type DailyUsage struct {
	Date          string `json:"date"`
	Activations   int    `json:"activations"`
	Verifications int    `json:"verifications"`
	Machines      int    `json:"machines"`
}

// LicenseStatistics 许可证统计信息
type LicenseStatistics struct {
	TotalLicenses      int64        `json:"total_licenses"`
	ActiveLicenses     int64        `json:"active_licenses"`
	RevokedLicenses    int64        `json:"revoked_licenses"`
	ExpiredLicenses    int64        `json:"expired_licenses"`
	ExpiringLicenses   int64        `json:"expiring_licenses"`
	BoundLicenses      int64        `json:"bound_licenses"`
	UnboundLicenses    int64        `json:"unbound_licenses"`
	TotalActivations   int64        `json:"total_activations"`
	FailedActivations  int64        `json:"failed_activations"`
	TotalVerifications int64        `json:"total_verifications"`
	FailedVerification int64        `json:"failed_verifications"`
	SuccessRate        float64      `json:"success_rate"`
	DailyUsage         []DailyUsage `json:"daily_usage"`
}

// GetSuccessRate 计算激活成功率
func (ls *LicenseStatistics) GetSuccessRate() float64 {
	if ls.TotalActivations == 0 {
		return 0
	}
	return float64(ls.TotalActivations-ls.FailedActivations) / float64(ls.TotalActivations)
}

// GetDailyUsageByDate 获取指定日期的使用统计
func (ls *LicenseStatistics) GetDailyUsageByDate(date time.Time) *DailyUsage {
	day := date.Format("2006-01-02")
	for i := range ls.DailyUsage {
		if ls.DailyUsage[i].Date == day {
			return &ls.DailyUsage[i]
		}
	}
	return nil
}
