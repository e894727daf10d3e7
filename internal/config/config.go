package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/langchou/fuhrpark/internal/models"
)

type Config struct {
	// Server
	ServerPort string
	Debug      bool

	// LivingApps
	BaseURL       string
	SessionCookie string // 原样放入 Cookie 头，如 "session=..."
	Timeout       time.Duration
	RateLimit     float64 // 每秒请求数，0 表示不限速
	RateBurst     int

	// 各集合的应用 ID
	AppIDs models.AppIDs
}

func Load() (*Config, error) {
	// 尝试加载 .env 文件（可选）
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:    getEnv("PORT", "4000"),
		Debug:         getEnvBool("DEBUG", false),
		BaseURL:       getEnv("LIVINGAPPS_BASE_URL", "https://my.living-apps.de/rest"),
		SessionCookie: getEnv("LIVINGAPPS_SESSION_COOKIE", ""),
		Timeout:       getEnvDuration("LIVINGAPPS_TIMEOUT", 30*time.Second),
		RateLimit:     getEnvFloat("LIVINGAPPS_RATE_LIMIT", 0),
		RateBurst:     getEnvInt("LIVINGAPPS_RATE_BURST", 4),
		AppIDs: models.AppIDs{
			Vehicles:              getEnv("LIVINGAPPS_APP_BUSSE", models.DefaultAppIDs.Vehicles),
			MaintenanceTypes:      getEnv("LIVINGAPPS_APP_WARTUNGSTYPEN", models.DefaultAppIDs.MaintenanceTypes),
			MaintenancePlans:      getEnv("LIVINGAPPS_APP_WARTUNGSPLANUNG", models.DefaultAppIDs.MaintenancePlans),
			MaintenanceExecutions: getEnv("LIVINGAPPS_APP_WARTUNGSDURCHFUEHRUNG", models.DefaultAppIDs.MaintenanceExecutions),
		},
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		f, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return defaultValue
}
