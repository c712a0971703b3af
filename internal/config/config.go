package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig 汇总运行 CMS 服务所需的基础配置。
type AppConfig struct {
	ListenAddr        string
	Port              string
	DatabasePath      string
	SessionSecret     string
	GinMode           string
	TemplateDir       string
	UploadDir         string
	UploadURLPath     string
	LogLevel          string
	LogFormat         string
	SuperRootUserName string
	SuperRootPassword string
}

// Load 从 .env 与环境变量读取应用配置，并为缺失项提供安全的默认值。
// 已存在的进程环境变量不会被 .env 覆盖。
func Load() AppConfig {
	_ = godotenv.Load()

	port := envOr("PORT", "8080")

	return AppConfig{
		ListenAddr:        envOr("LISTEN_ADDR", fmt.Sprintf(":%s", port)),
		Port:              port,
		DatabasePath:      envOr("DATABASE_PATH", "barebonescms.db"),
		SessionSecret:     envOr("SESSION_SECRET", "barebonescms-dev-secret"),
		GinMode:           envOr("GIN_MODE", "release"),
		TemplateDir:       envOr("TEMPLATE_DIR", "templates"),
		UploadDir:         envOr("UPLOAD_DIR", "web/static/uploads"),
		UploadURLPath:     envOr("UPLOAD_URL_PATH", "/static/uploads"),
		LogLevel:          envOr("LOG_LEVEL", "info"),
		LogFormat:         envOr("LOG_FORMAT", "console"),
		SuperRootUserName: strings.TrimSpace(os.Getenv("SUPER_ROOT_USER_NAME")),
		SuperRootPassword: strings.TrimSpace(os.Getenv("SUPER_ROOT_PASSWORD")),
	}
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}
