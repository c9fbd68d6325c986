package app

import (
	"strings"

	"github.com/charlesng35/leadflow/internal/auth"
)

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultAccessTokenTTL
	}

	return auth.JWTConfig{
		Secret:         c.JWT.Secret,
		Issuer:         c.JWT.Issuer,
		AccessTokenTTL: ttl,
	}
}

// AdminGateConfig converts AdminConfig into the admin gate parameters.
// The plaintext password is never passed on; ApplyRuntimeDefaults hashes it first.
func (c AdminConfig) AdminGateConfig() auth.AdminGateConfig {
	return auth.AdminGateConfig{
		Email:        strings.TrimSpace(c.Email),
		PasswordHash: strings.TrimSpace(c.PasswordHash),
		TOTPSecret:   strings.TrimSpace(c.TOTPSecret),
	}
}
