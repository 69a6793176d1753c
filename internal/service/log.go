package service

import (
	"context"
	"encoding/json"
	"license-verification-api/internal/model"
	"time"

	"gorm.io/gorm"
)

// 管理操作类型
const (
	ActionCreate  = "create"
	ActionRevoke  = "revoke"
	ActionReissue = "reissue"
	ActionRenew   = "renew"
	ActionDelete  = "delete"
	ActionExport  = "export"
)

func LogOperation(ctx context.Context, db *gorm.DB, userID uint, action string, target string, targetID string, details interface{}) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return err
	}

	log := &model.OperationLog{
		UserID:    userID,
		Action:    action,
		Target:    target,
		TargetID:  targetID,
		Details:   string(detailsJSON),
		CreatedAt: time.Now(),
	}

	return db.WithContext(ctx).Create(log).Error
}

// 获取操作日志列表，targetID 为空时不过滤
func GetOperationLogs(ctx context.Context, db *gorm.DB, targetID string, page, pageSize int) ([]model.OperationLog, int64, error) {
	var logs []model.OperationLog
	var total int64

	query := db.WithContext(ctx).Model(&model.OperationLog{})
	if targetID != "" {
		query = query.Where("target_id = ?", targetID)
	}

	// 获取总数
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// 获取分页数据
	offset := (page - 1) * pageSize
	if err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
