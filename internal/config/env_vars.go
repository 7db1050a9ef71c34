package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	portEnvVar     = "PORT"
	appNameVar     = "APP_NAME"
	envVar         = "ENV"
	logLevelVar    = "LOG_LEVEL"
	redisURLVar    = "REDIS_URL"
	adminEmailVar  = "ADMIN_EMAIL"
	adminPassVar   = "ADMIN_PASSWORD"
	defaultEnvFile = ".env"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "5000")
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "FoodBook")
}

func (EnvVars) GetEnv() string {
	return GetEnv(envVar, "DEV")
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

// GetRedisURL returns the Redis connection URL. Empty means in-memory stores.
func (EnvVars) GetRedisURL() string {
	return GetEnv(redisURLVar, "")
}

func (EnvVars) GetAdminEmail() string {
	return GetEnv(adminEmailVar, "")
}

func (EnvVars) GetAdminPassword() string {
	return GetEnv(adminPassVar, "")
}

// LoadEnvFile loads variables from a .env file when present. Variables that are
// already set in the process environment win.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{defaultEnvFile}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("godotenv.Load %s: %w", p, err)
		}
	}
	return nil
}

func GetEnv(envVar, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(envVar))
	if value == "" {
		return defaultValue
	}
	return value
}
