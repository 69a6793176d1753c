package model

import "time"

// 使用记录动作
const (
	UsageActionActivate = "activate"
	UsageActionVerify   = "verify"
)

// LicenseUsage 公开接口每次调用的记录
type LicenseUsage struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	LicenseKey string    `json:"license_key" gorm:"index"`
	MachineID  string    `json:"machine_id"`
	Action     string    `json:"action"` // "verify", "activate"
	Result     string    `json:"result"` // "activated", "valid", "invalid" 或错误码
	IPAddress  string    `json:"ip_address"`
	UserAgent  string    `json:"user_agent"`
	Timestamp  time.Time `json:"timestamp" gorm:"index"`
}
