package config

import (
	"strings"

	apperrors "github.com/jrsteele09/foodbook-server/internal/errors"
)

type Config interface {
	EnvConfig
	CorsConfig
	TokenConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetRedisURL() string
	GetAdminEmail() string
	GetAdminPassword() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Tokens
}

func New() Config {
	return mainConfig{}
}

// Validate checks the settings the server cannot start without.
func Validate(c Config) error {
	var missing []string
	if c.GetAccessSecret() == "" {
		missing = append(missing, accessSecretVar)
	}
	if c.GetRefreshSecret() == "" {
		missing = append(missing, refreshSecretVar)
	}
	if len(missing) > 0 {
		return apperrors.Wrapf(apperrors.ErrInvalidConf, "missing required environment variables: %s", strings.Join(missing, ", "))
	}

	if len(c.GetAccessSecret()) < MinSecretLength {
		return apperrors.Wrapf(apperrors.ErrInvalidConf, "%s should be at least %d characters", accessSecretVar, MinSecretLength)
	}
	if len(c.GetRefreshSecret()) < MinSecretLength {
		return apperrors.Wrapf(apperrors.ErrInvalidConf, "%s should be at least %d characters", refreshSecretVar, MinSecretLength)
	}
	if c.GetAccessSecret() == c.GetRefreshSecret() {
		return apperrors.Wrapf(apperrors.ErrInvalidConf, "%s and %s must be different", accessSecretVar, refreshSecretVar)
	}

	if _, err := c.GetAccessTokenExpiry(); err != nil {
		return apperrors.Wrapf(apperrors.ErrInvalidConf, "%s: %s", accessExpiryVar, err)
	}
	if _, err := c.GetRefreshTokenExpiry(); err != nil {
		return apperrors.Wrapf(apperrors.ErrInvalidConf, "%s: %s", refreshExpiryVar, err)
	}

	if origin := GetEnv(clientURLVar, ""); origin != "" && !strings.HasPrefix(origin, "http") {
		return apperrors.Wrapf(apperrors.ErrInvalidConf, "%s must start with http:// or https://", clientURLVar)
	}
	return nil
}
