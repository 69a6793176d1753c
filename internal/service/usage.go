package service

import (
	"context"
	"license-verification-api/internal/model"

	"gorm.io/gorm"
)

// 使用记录结果
const (
	UsageResultActivated = "activated"
	UsageResultValid     = "valid"
	UsageResultInvalid   = "invalid"
)

// RecordUsage 写入一条使用记录，timestamp 统一存为 UTC 以便按区间查询
func RecordUsage(ctx context.Context, db *gorm.DB, usage *model.LicenseUsage) error {
	usage.Timestamp = usage.Timestamp.UTC()
	return db.WithContext(ctx).Create(usage).Error
}

// GetLicenseUsage 某个许可证最近的使用记录
func GetLicenseUsage(ctx context.Context, db *gorm.DB, licenseKey string, limit int) ([]model.LicenseUsage, error) {
	var usages []model.LicenseUsage
	err := db.WithContext(ctx).
		Where("license_key = ?", licenseKey).
		Order("timestamp desc").
		Limit(limit).
		Find(&usages).Error
	return usages, err
}
