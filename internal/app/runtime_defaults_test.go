package app

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/leadflow/pkg/crypto"
)

func TestApplyRuntimeDefaultsGeneratesMissingSecrets(t *testing.T) {
	cfg := &Config{}

	generated, err := ApplyRuntimeDefaults(cfg)
	require.NoError(t, err)
	require.NotEmpty(t, cfg.Auth.JWT.Secret)
	require.True(t, generated["auth.jwt.secret"])
	require.False(t, generated["admin.password_hash"])
	require.Empty(t, cfg.Admin.PasswordHash)
}

func TestApplyRuntimeDefaultsHashesAdminPassword(t *testing.T) {
	cfg := &Config{}
	cfg.Auth.JWT.Secret = "configured"
	cfg.Admin.Password = "hunter22"

	generated, err := ApplyRuntimeDefaults(cfg)
	require.NoError(t, err)
	require.True(t, generated["admin.password_hash"])
	require.Empty(t, cfg.Admin.Password)
	require.True(t, crypto.VerifyPassword(cfg.Admin.PasswordHash, "hunter22"))
}

func TestApplyRuntimeDefaultsPreservesExistingSecrets(t *testing.T) {
	hash, err := crypto.HashPassword("hunter22")
	require.NoError(t, err)

	cfg := &Config{}
	cfg.Auth.JWT.Secret = strings.Repeat("a", 10)
	cfg.Admin.PasswordHash = hash
	cfg.Admin.Password = "ignored"

	generated, err := ApplyRuntimeDefaults(cfg)
	require.NoError(t, err)
	require.Empty(t, generated)
	require.Equal(t, hash, cfg.Admin.PasswordHash)
	require.Empty(t, cfg.Admin.Password)
}

func TestApplyRuntimeDefaultsNilConfig(t *testing.T) {
	_, err := ApplyRuntimeDefaults(nil)
	require.ErrorContains(t, err, "config is nil")
}
