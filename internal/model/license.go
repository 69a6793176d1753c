package model

import "time"

// 许可证状态
const (
	LicenseStatusActive  = "active"
	LicenseStatusRevoked = "revoked"
)

// License 单个许可证记录，license_key 为自然主键
type License struct {
	LicenseKey     string     `json:"license_key" gorm:"primaryKey;size:128"`
	MachineID      *string    `json:"machine_id" gorm:"index:idx_licenses_machine_id;size:256"`
	Status         string     `json:"status" gorm:"not null;default:'active'"`
	ExpiresAt      *time.Time `json:"expires_at"`
	ActivatedAt    *time.Time `json:"activated_at"`
	LastVerifiedAt *time.Time `json:"last_verified_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// IsActive 状态是否为 active
func (l *License) IsActive() bool {
	return l.Status == LicenseStatusActive
}

// IsExpired expires_at 为空表示永不过期
func (l *License) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}

// IsBound 是否已绑定机器
func (l *License) IsBound() bool {
	return l.MachineID != nil
}

// BoundTo 是否绑定到指定机器
func (l *License) BoundTo(machineID string) bool {
	return l.MachineID != nil && *l.MachineID == machineID
}
