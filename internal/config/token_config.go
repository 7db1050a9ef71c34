package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jrsteele09/foodbook-server/token"
)

const (
	accessSecretVar  = "JWT_SECRET"
	refreshSecretVar = "JWT_REFRESH_SECRET"
	accessExpiryVar  = "JWT_ACCESS_EXPIRES_IN"
	refreshExpiryVar = "JWT_REFRESH_EXPIRES_IN"
	issuerVar        = "JWT_ISSUER"

	// MinSecretLength is the minimum length of each signing secret.
	MinSecretLength = 32
)

type TokenConfig interface {
	GetAccessSecret() string
	GetRefreshSecret() string
	GetAccessTokenExpiry() (time.Duration, error)
	GetRefreshTokenExpiry() (time.Duration, error)
	GetIssuer() string
}

type Tokens struct{}

var _ TokenConfig = Tokens{}

func (Tokens) GetAccessSecret() string {
	return GetEnv(accessSecretVar, "")
}

func (Tokens) GetRefreshSecret() string {
	return GetEnv(refreshSecretVar, "")
}

func (Tokens) GetAccessTokenExpiry() (time.Duration, error) {
	return ParseExpiry(GetEnv(accessExpiryVar, ""), token.DefaultAccessExpiry)
}

func (Tokens) GetRefreshTokenExpiry() (time.Duration, error) {
	return ParseExpiry(GetEnv(refreshExpiryVar, ""), token.DefaultRefreshExpiry)
}

func (Tokens) GetIssuer() string {
	return GetEnv(issuerVar, "foodbook")
}

// ParseExpiry parses an expiry such as "15m", "12h" or "7d". A bare number is
// read as seconds. An empty value yields def.
func ParseExpiry(value string, def time.Duration) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return def, nil
	}

	if secs, err := strconv.Atoi(value); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("expiry must be positive: %q", value)
		}
		return time.Duration(secs) * time.Second, nil
	}

	if days, ok := strings.CutSuffix(value, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid expiry: %q", value)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid expiry: %q", value)
	}
	if d <= 0 {
		return 0, fmt.Errorf("expiry must be positive: %q", value)
	}
	return d, nil
}
