package database

import (
	"context"
	"errors"
	"time"

	"license-verification-api/internal/ledger"
	"license-verification-api/internal/model"

	"gorm.io/gorm"
)

var (
	// ErrLicenseNotFound 与 ledger.ErrNotFound 为同一个值
	ErrLicenseNotFound = ledger.ErrNotFound
	ErrLicenseExists   = errors.New("license already exists")
)

// LicenseStore licenses 表的读写，实现 ledger.Store
type LicenseStore struct {
	db *gorm.DB
}

var _ ledger.Store = (*LicenseStore)(nil)

func NewLicenseStore(db *gorm.DB) *LicenseStore {
	return &LicenseStore{db: db}
}

func (s *LicenseStore) FindLicense(ctx context.Context, key string) (*model.License, error) {
	var lic model.License
	err := s.db.WithContext(ctx).Where("license_key = ?", key).First(&lic).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLicenseNotFound
		}
		return nil, err
	}
	return &lic, nil
}

// BindMachine 条件更新：只有仍未绑定、active 且未过期的记录会被写入。
// expires_at 写入时统一转为 UTC（utcTime），这里按文本比较
func (s *LicenseStore) BindMachine(ctx context.Context, key, machineID string, at time.Time) (bool, error) {
	at = at.UTC()
	result := s.db.WithContext(ctx).Model(&model.License{}).
		Where("license_key = ? AND machine_id IS NULL AND status = ?", key, model.LicenseStatusActive).
		Where("(expires_at IS NULL OR expires_at > ?)", at).
		Updates(map[string]interface{}{
			"machine_id":   machineID,
			"activated_at": gorm.Expr("COALESCE(activated_at, ?)", at),
			"updated_at":   at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// TouchVerified 只更新 last_verified_at，不改 updated_at
func (s *LicenseStore) TouchVerified(ctx context.Context, key string, at time.Time) error {
	return s.db.WithContext(ctx).Model(&model.License{}).
		Where("license_key = ?", key).
		UpdateColumn("last_verified_at", at).Error
}

// CreateLicense 管理员录入新许可证，总是未绑定状态
func (s *LicenseStore) CreateLicense(ctx context.Context, key string, expiresAt *time.Time) (*model.License, error) {
	lic := &model.License{
		LicenseKey: key,
		Status:     model.LicenseStatusActive,
		ExpiresAt:  utcTime(expiresAt),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.License{}).Where("license_key = ?", key).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrLicenseExists
		}
		return tx.Create(lic).Error
	})
	if err != nil {
		return nil, err
	}
	return lic, nil
}

// ListLicenses 分页查询；machine_id 过滤走 idx_licenses_machine_id
func (s *LicenseStore) ListLicenses(ctx context.Context, q model.LicenseListQuery) ([]model.License, int64, error) {
	db := s.db.WithContext(ctx).Model(&model.License{})
	if q.Status != "" {
		db = db.Where("status = ?", q.Status)
	}
	if q.MachineID != "" {
		db = db.Where("machine_id = ?", q.MachineID)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var licenses []model.License
	offset := (q.Page - 1) * q.PageSize
	if err := db.Order("created_at DESC").Offset(offset).Limit(q.PageSize).Find(&licenses).Error; err != nil {
		return nil, 0, err
	}
	return licenses, total, nil
}

// FindByMachine 管理查询：某台机器绑定的许可证
func (s *LicenseStore) FindByMachine(ctx context.Context, machineID string) ([]model.License, error) {
	var licenses []model.License
	err := s.db.WithContext(ctx).Where("machine_id = ?", machineID).Find(&licenses).Error
	return licenses, err
}

// RevokeLicense 吊销，没有反向操作
func (s *LicenseStore) RevokeLicense(ctx context.Context, key string) (*model.License, error) {
	return s.update(ctx, key, map[string]interface{}{
		"status": model.LicenseStatusRevoked,
	})
}

// ReissueLicense 解除机器绑定，machine_id 与 activated_at 一起清空
func (s *LicenseStore) ReissueLicense(ctx context.Context, key string) (*model.License, error) {
	return s.update(ctx, key, map[string]interface{}{
		"machine_id":   nil,
		"activated_at": nil,
	})
}

// SetExpiry 续期或取消有效期
func (s *LicenseStore) SetExpiry(ctx context.Context, key string, expiresAt *time.Time) (*model.License, error) {
	return s.update(ctx, key, map[string]interface{}{
		"expires_at": utcTime(expiresAt),
	})
}

func (s *LicenseStore) DeleteLicense(ctx context.Context, key string) error {
	result := s.db.WithContext(ctx).Where("license_key = ?", key).Delete(&model.License{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLicenseNotFound
	}
	return nil
}

func (s *LicenseStore) update(ctx context.Context, key string, fields map[string]interface{}) (*model.License, error) {
	result := s.db.WithContext(ctx).Model(&model.License{}).
		Where("license_key = ?", key).
		Updates(fields)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrLicenseNotFound
	}
	return s.FindLicense(ctx, key)
}

func utcTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
