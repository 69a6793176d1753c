package ledger

import (
	"context"
	"time"

	"license-verification-api/internal/model"
)

// Store 账本依赖的存储接口。
//
// FindLicense 找不到记录时返回 ErrNotFound。
// BindMachine 必须是一次条件写入：仅当记录仍未绑定、为 active 且在 at 时刻未过期时
// 写入 machineID，activated_at 为空时置为 at，返回是否有行被修改。
// TouchVerified 只更新 last_verified_at。
type Store interface {
	FindLicense(ctx context.Context, key string) (*model.License, error)
	BindMachine(ctx context.Context, key, machineID string, at time.Time) (bool, error)
	TouchVerified(ctx context.Context, key string, at time.Time) error
}
