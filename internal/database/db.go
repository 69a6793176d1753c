package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"license-verification-api/internal/model"

	"github.com/glebarez/sqlite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open 打开 SQLite 数据库并完成迁移
func Open(dbPath string, logLevel logger.LogLevel) (*gorm.DB, error) {
	// 创建数据目录
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	// busy_timeout 避免并发写入时立即返回 SQLITE_BUSY
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return db, nil
}

// Migrate 自动迁移模型
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.License{},
		&model.LicenseUsage{},
		&model.OperationLog{},
		&model.User{},
		&model.LoginLog{},
	)
}

// EnsureAdmin 不存在 admin 账户时创建，返回是否新建
func EnsureAdmin(db *gorm.DB, password string) (bool, error) {
	var adminCount int64
	if err := db.Model(&model.User{}).Where("username = ?", "admin").Count(&adminCount).Error; err != nil {
		return false, err
	}
	if adminCount > 0 {
		return false, nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}

	admin := &model.User{
		Username: "admin",
		Password: string(hashedPassword),
		Role:     model.RoleAdmin,
		Status:   "active",
	}
	if err := db.Create(admin).Error; err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}
	return true, nil
}

// DemoLicenseKey 示例许可证
const DemoLicenseKey = "DEMO-1234-5678"

// SeedDemoLicense 插入一年有效期的示例许可证，已存在时跳过
func SeedDemoLicense(db *gorm.DB, now time.Time) (bool, error) {
	var existing model.License
	err := db.Where("license_key = ?", DemoLicenseKey).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	expiresAt := now.AddDate(0, 0, 365)
	lic := &model.License{
		LicenseKey: DemoLicenseKey,
		Status:     model.LicenseStatusActive,
		ExpiresAt:  &expiresAt,
	}
	if err := db.Create(lic).Error; err != nil {
		return false, err
	}
	return true, nil
}

// Ping 健康检查
func Ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
