package app

import (
	"fmt"
	"strings"

	"github.com/charlesng35/leadflow/pkg/crypto"
)

const jwtSecretBytes = 48

// ApplyRuntimeDefaults ensures critical secrets are populated even when no configuration file is supplied.
// It returns a map describing which keys were generated so callers can log the event without exposing values.
// A plaintext admin.password is replaced by its bcrypt hash.
func ApplyRuntimeDefaults(cfg *Config) (map[string]bool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	generated := make(map[string]bool)

	if strings.TrimSpace(cfg.Auth.JWT.Secret) == "" {
		secret, err := crypto.GenerateToken(jwtSecretBytes)
		if err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		cfg.Auth.JWT.Secret = secret
		generated["auth.jwt.secret"] = true
	}

	if strings.TrimSpace(cfg.Admin.PasswordHash) == "" && cfg.Admin.Password != "" {
		hash, err := crypto.HashPassword(cfg.Admin.Password)
		if err != nil {
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
		cfg.Admin.PasswordHash = hash
		generated["admin.password_hash"] = true
	}
	cfg.Admin.Password = ""

	return generated, nil
}
