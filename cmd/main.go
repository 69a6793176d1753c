package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"license-verification-api/internal/config"
	"license-verification-api/internal/database"
	"license-verification-api/internal/handler"
	"license-verification-api/internal/logger"
	"license-verification-api/internal/metrics"
	"license-verification-api/internal/middleware"
	"license-verification-api/internal/service"
	"license-verification-api/internal/util"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	configPath := flag.String("config", os.Getenv("LICENSE_CONFIG"), "path to YAML config file")
	seedDemo := flag.Bool("seed-demo", false, "insert the DEMO-1234-5678 sample license if missing")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// logger 依赖配置，这里只能直接退出
		os.Stderr.WriteString("load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.IsDev())
	if err != nil {
		log, _ = zap.NewProduction()
		log.Warn("invalid log config, using production logger", zap.Error(err))
	}
	defer log.Sync()

	// 初始化数据库
	dbLogLevel := gormlogger.Warn
	if cfg.IsDev() {
		dbLogLevel = gormlogger.Info
	}
	db, err := database.Open(cfg.DBPath, dbLogLevel)
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}

	created, err := database.EnsureAdmin(db, cfg.AdminPassword)
	if err != nil {
		log.Fatal("ensure admin account", zap.Error(err))
	}
	if created {
		log.Info("default admin account created", zap.String("username", "admin"))
	}

	if *seedDemo {
		seeded, err := database.SeedDemoLicense(db, time.Now().UTC())
		if err != nil {
			log.Fatal("seed demo license", zap.Error(err))
		}
		log.Info("demo license", zap.String("license_key", database.DemoLicenseKey), zap.Bool("created", seeded))
	}

	sheets, err := service.NewSheetSyncService(context.Background(),
		cfg.SheetSync.Enable, cfg.SheetSync.CredentialPath, cfg.SheetSync.SpreadsheetID, cfg.SheetSync.SheetName, log)
	if err != nil {
		log.Fatal("init sheet sync", zap.Error(err))
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal("invalid redis url", zap.Error(err))
		}
		rdb = redis.NewClient(opts)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, rate limiting will fail open", zap.Error(err))
		}
		cancel()
		defer rdb.Close()
	}

	h := handler.New(handler.Options{
		DB:      db,
		Tokens:  util.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL),
		Sheets:  sheets,
		Metrics: metrics.New(),
		Logger:  log,
	})

	app := fiber.New(fiber.Config{
		AppName:      "license-verification-api",
		ErrorHandler: handler.ErrorHandler,
	})

	// 中间件
	app.Use(recover.New())
	app.Use(middleware.Logger(log))
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.AllowOrigins, ","),
	}))

	h.Register(app, middleware.RateLimit(rdb, cfg.RateLimit.Max, cfg.RateLimit.Window, log))

	go func() {
		log.Info("server starting", zap.String("addr", cfg.Addr()))
		if err := app.Listen(cfg.Addr()); err != nil {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}
	log.Info("server exited")
}
