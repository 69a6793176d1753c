// Package ledger 许可证激活与校验规则
package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"license-verification-api/internal/model"
)

// maxBindAttempts 条件绑定失败后重新判断的次数上限
const maxBindAttempts = 3

// Ledger 基于 Store 判定激活与校验结果，自身不持有状态
type Ledger struct {
	store Store
	now   func() time.Time
}

// Option 构造 Ledger 时的可选配置
type Option func(*Ledger)

// WithClock 替换时间来源，默认 time.Now
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New 创建 Ledger，store 不能为空
func New(store Store, opts ...Option) *Ledger {
	l := &Ledger{store: store, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Activate 把 key 绑定到 machineID。
// 依次检查：记录存在、未吊销、未过期；已绑定到同一机器时直接成功，不写库。
func (l *Ledger) Activate(ctx context.Context, key, machineID string) error {
	if err := checkInput(key, machineID); err != nil {
		return err
	}

	for attempt := 0; attempt < maxBindAttempts; attempt++ {
		lic, err := l.find(ctx, key)
		if err != nil {
			return err
		}

		now := l.now()
		if err := checkUsable(lic, now); err != nil {
			return err
		}

		switch {
		case lic.BoundTo(machineID):
			return nil
		case lic.IsBound():
			return newError(KindAlreadyActivated, key, nil)
		}

		bound, err := l.store.BindMachine(ctx, key, machineID, now)
		if err != nil {
			return newError(KindStorage, key, err)
		}
		if bound {
			return nil
		}
		// 条件更新未命中：记录已被并发修改，重新读取后再判断
	}

	return newError(KindStorage, key, errors.New("record kept changing during bind"))
}

// Verify 判断 key 当前能否在 machineID 上使用。
// 业务失败一律返回 false，只有参数错误和存储错误会返回 error；
// 记录存在时总会更新 last_verified_at。
func (l *Ledger) Verify(ctx context.Context, key, machineID string) (bool, error) {
	if err := checkInput(key, machineID); err != nil {
		return false, err
	}

	lic, err := l.find(ctx, key)
	if err != nil {
		if errors.Is(err, ErrInvalidLicense) {
			return false, nil
		}
		return false, err
	}

	now := l.now()
	valid := checkUsable(lic, now) == nil && lic.BoundTo(machineID)

	if err := l.store.TouchVerified(ctx, key, now); err != nil {
		return false, newError(KindStorage, key, err)
	}
	return valid, nil
}

func (l *Ledger) find(ctx context.Context, key string) (*model.License, error) {
	lic, err := l.store.FindLicense(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, newError(KindInvalidLicense, key, nil)
	}
	if err != nil {
		return nil, newError(KindStorage, key, err)
	}
	return lic, nil
}

// checkUsable 先检查状态再检查有效期
func checkUsable(lic *model.License, now time.Time) error {
	if !lic.IsActive() {
		return newError(KindLicenseRevoked, lic.LicenseKey, nil)
	}
	if lic.IsExpired(now) {
		return newError(KindLicenseExpired, lic.LicenseKey, nil)
	}
	return nil
}

func checkInput(key, machineID string) error {
	if strings.TrimSpace(key) == "" {
		return newError(KindInvalidInput, "", errors.New("license_key is required"))
	}
	if strings.TrimSpace(machineID) == "" {
		return newError(KindInvalidInput, key, errors.New("machine_id is required"))
	}
	return nil
}
