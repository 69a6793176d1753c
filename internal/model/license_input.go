package model

import "time"

// LicenseRequest activate / verify 共用的请求体
type LicenseRequest struct {
	LicenseKey string `json:"license_key" validate:"required,max=128"`
	MachineID  string `json:"machine_id" validate:"required,max=256"`
}

// LicenseCreateInput 管理员创建许可证，key 为空时自动生成
type LicenseCreateInput struct {
	LicenseKey string     `json:"license_key" validate:"omitempty,max=128"`
	ExpiresAt  *time.Time `json:"expires_at"`
}

// LicenseExpiryInput 续期，expires_at 为 null 表示永不过期
type LicenseExpiryInput struct {
	ExpiresAt *time.Time `json:"expires_at"`
}

// LicenseListQuery 列表查询参数
type LicenseListQuery struct {
	Page      int    `query:"page"`
	PageSize  int    `query:"page_size"`
	Status    string `query:"status" validate:"omitempty,oneof=active revoked"`
	MachineID string `query:"machine_id"`
}
