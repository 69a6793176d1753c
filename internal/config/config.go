package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix 环境变量前缀，例如 LICENSE_PORT
	EnvPrefix = "LICENSE"

	DefaultJWTSecret = "license-api-secret-change-me"
)

// Config 服务运行配置：代码默认值 < YAML 文件 < 环境变量
type Config struct {
	Port          int           `yaml:"port" envconfig:"PORT"`
	Env           string        `yaml:"env" envconfig:"ENV"`
	DBPath        string        `yaml:"db_path" envconfig:"DB_PATH"`
	LogLevel      string        `yaml:"log_level" envconfig:"LOG_LEVEL"`
	JWTSecret     string        `yaml:"jwt_secret" envconfig:"JWT_SECRET"`
	JWTTTL        time.Duration `yaml:"jwt_ttl" envconfig:"JWT_TTL"`
	AdminPassword string        `yaml:"admin_password" envconfig:"ADMIN_PASSWORD"`
	AllowOrigins  []string      `yaml:"allow_origins" envconfig:"ALLOW_ORIGINS"`
	RedisURL      string        `yaml:"redis_url" envconfig:"REDIS_URL"`
	RateLimit     RateLimit     `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
	SheetSync     SheetSync     `yaml:"sheet_sync" envconfig:"SHEET_SYNC"`
}

// RateLimit 公开接口的固定窗口限流，仅在配置 Redis 时生效
type RateLimit struct {
	Max    int           `yaml:"max" envconfig:"MAX"`
	Window time.Duration `yaml:"window" envconfig:"WINDOW"`
}

// SheetSync Google Sheets 镜像
type SheetSync struct {
	Enable         bool   `yaml:"enable" envconfig:"ENABLE"`
	CredentialPath string `yaml:"credential_path" envconfig:"CREDENTIAL_PATH"`
	SpreadsheetID  string `yaml:"spreadsheet_id" envconfig:"SPREADSHEET_ID"`
	SheetName      string `yaml:"sheet_name" envconfig:"SHEET_NAME"`
}

func Default() *Config {
	return &Config{
		Port:          8000,
		Env:           "development",
		DBPath:        "data/license.db",
		LogLevel:      "info",
		JWTSecret:     DefaultJWTSecret,
		JWTTTL:        24 * time.Hour,
		AdminPassword: "admin",
		AllowOrigins:  []string{"*"},
		RateLimit: RateLimit{
			Max:    30,
			Window: time.Minute,
		},
		SheetSync: SheetSync{
			SheetName: "Licenses",
		},
	}
}

// Load 读取配置文件（可选）并应用环境变量覆盖
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", path, err)
			}
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return strings.EqualFold(c.Env, "development")
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return errors.New("db_path is required")
	}
	if !c.IsDev() && c.JWTSecret == DefaultJWTSecret {
		return errors.New("jwt_secret must be changed outside development")
	}
	if c.RateLimit.Max < 0 {
		return fmt.Errorf("invalid rate_limit.max %d", c.RateLimit.Max)
	}
	if c.SheetSync.Enable && (c.SheetSync.CredentialPath == "" || c.SheetSync.SpreadsheetID == "") {
		return errors.New("sheet_sync requires credential_path and spreadsheet_id")
	}
	return nil
}
