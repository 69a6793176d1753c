package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"license-verification-api/internal/model"

	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetSyncService 把许可证记录镜像到 Google Sheet，一行一个 license_key
type SheetSyncService struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
	log           *zap.Logger
}

// sheetHeader 对应 A:H 列
var sheetHeader = []interface{}{
	"license_key", "machine_id", "status", "expires_at",
	"activated_at", "last_verified_at", "created_at", "updated_at",
}

// NewSheetSyncService enableSync 为 false 时返回 nil，nil 接收者上的方法都是空操作
func NewSheetSyncService(ctx context.Context, enableSync bool, credentialPath, spreadsheetID, sheetName string, log *zap.Logger) (*SheetSyncService, error) {
	if !enableSync {
		return nil, nil
	}

	// 读取凭证文件
	b, err := os.ReadFile(credentialPath)
	if err != nil {
		return nil, fmt.Errorf("read sheet credentials: %w", err)
	}

	// 使用服务账号授权
	creds, err := google.CredentialsFromJSON(ctx, b, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("load sheet credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}

	return &SheetSyncService{
		service:       srv,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		log:           log,
	}, nil
}

// SyncLicense 按 license_key 更新已有行，找不到则追加
func (s *SheetSyncService) SyncLicense(ctx context.Context, license *model.License) error {
	if s == nil {
		return nil
	}

	// 先检查Sheet中是否已存在该Key
	keyResp, err := s.service.Spreadsheets.Values.
		Get(s.spreadsheetID, fmt.Sprintf("%s!A2:A", s.sheetName)).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read sheet keys: %w", err)
	}

	rowIndex := findKeyRow(keyResp.Values, license.LicenseKey)
	values := [][]interface{}{licenseRow(license)}

	if rowIndex > 0 {
		rangeData := fmt.Sprintf("%s!A%d:H%d", s.sheetName, rowIndex, rowIndex)
		_, err = s.service.Spreadsheets.Values.
			Update(s.spreadsheetID, rangeData, &sheets.ValueRange{Values: values}).
			ValueInputOption("RAW").Context(ctx).Do()
	} else {
		_, err = s.service.Spreadsheets.Values.
			Append(s.spreadsheetID, s.sheetName+"!A2:H", &sheets.ValueRange{Values: values}).
			ValueInputOption("RAW").Context(ctx).Do()
	}
	if err != nil {
		return fmt.Errorf("sync license %s to sheet: %w", license.LicenseKey, err)
	}

	s.log.Debug("license synced to sheet", zap.String("license_key", license.LicenseKey))
	return nil
}

// ExportLicenses 清空工作表后整表写入
func (s *SheetSyncService) ExportLicenses(ctx context.Context, licenses []model.License) error {
	if s == nil {
		return nil
	}

	values := make([][]interface{}, 0, len(licenses)+1)
	values = append(values, sheetHeader)
	for i := range licenses {
		values = append(values, licenseRow(&licenses[i]))
	}

	if _, err := s.service.Spreadsheets.Values.
		Clear(s.spreadsheetID, s.sheetName+"!A:H", &sheets.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear sheet: %w", err)
	}

	if _, err := s.service.Spreadsheets.Values.
		Update(s.spreadsheetID, s.sheetName+"!A1:H", &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("export licenses to sheet: %w", err)
	}

	s.log.Info("licenses exported to sheet", zap.Int("count", len(licenses)))
	return nil
}

// SyncLicenseAsync 后台同步，失败只记录日志
func (s *SheetSyncService) SyncLicenseAsync(license model.License) {
	if s == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.SyncLicense(ctx, &license); err != nil {
			s.log.Warn("sheet sync failed", zap.String("license_key", license.LicenseKey), zap.Error(err))
		}
	}()
}

// findKeyRow 返回工作表中的行号（从 A2 开始），没找到返回 0
func findKeyRow(rows [][]interface{}, key string) int {
	for i, row := range rows {
		if len(row) > 0 && row[0] == key {
			return i + 2
		}
	}
	return 0
}

func licenseRow(l *model.License) []interface{} {
	return []interface{}{
		l.LicenseKey,
		stringOrEmpty(l.MachineID),
		l.Status,
		timeOrEmpty(l.ExpiresAt),
		timeOrEmpty(l.ActivatedAt),
		timeOrEmpty(l.LastVerifiedAt),
		l.CreatedAt.Format(time.RFC3339),
		l.UpdatedAt.Format(time.RFC3339),
	}
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func timeOrEmpty(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
