package auth

import (
	"context"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/leadflow/internal/auth/mfa"
	"github.com/charlesng35/leadflow/pkg/crypto"
	apperrors "github.com/charlesng35/leadflow/pkg/errors"
)

func newTestGate(t *testing.T, totpSecret string, now func() time.Time) *AdminGate {
	t.Helper()

	hash, err := crypto.HashPassword("correct horse")
	require.NoError(t, err)

	tokens, err := NewJWTService(JWTConfig{Secret: "test-secret", Issuer: "leadflow", Clock: now})
	require.NoError(t, err)

	gate, err := NewAdminGate(AdminGateConfig{
		Email:        "Owner@Example.com",
		PasswordHash: hash,
		TOTPSecret:   totpSecret,
		Clock:        now,
	}, tokens)
	require.NoError(t, err)
	return gate
}

func TestNewAdminGateValidatesConfig(t *testing.T) {
	tokens, err := NewJWTService(JWTConfig{Secret: "secret"})
	require.NoError(t, err)

	_, err = NewAdminGate(AdminGateConfig{PasswordHash: "x"}, tokens)
	require.Error(t, err)

	_, err = NewAdminGate(AdminGateConfig{Email: "owner@example.com", PasswordHash: "plain"}, tokens)
	require.Error(t, err)

	_, err = NewAdminGate(AdminGateConfig{Email: "owner@example.com"}, nil)
	require.Error(t, err)
}

func TestAdminGateLogin(t *testing.T) {
	gate := newTestGate(t, "", time.Now)

	result, err := gate.Login(context.Background(), Credentials{Email: "owner@example.com", Password: "correct horse"})
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)
	require.Equal(t, "Owner@Example.com", result.Admin.Email)
	require.False(t, result.Admin.MFAEnabled)

	claims, err := gate.Authenticate(result.AccessToken)
	require.NoError(t, err)
	require.True(t, gate.Authorize(claims))
}

func TestAdminGateRejectsBadCredentials(t *testing.T) {
	gate := newTestGate(t, "", time.Now)

	_, err := gate.Login(context.Background(), Credentials{Email: "owner@example.com", Password: "wrong"})
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = gate.Login(context.Background(), Credentials{Email: "intruder@example.com", Password: "correct horse"})
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = gate.Login(context.Background(), Credentials{})
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestAdminGateRequiresOneTimeCode(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	enrollment, err := mfa.Generate("Leadflow", "owner@example.com")
	require.NoError(t, err)
	gate := newTestGate(t, enrollment.Secret, clock)
	require.True(t, gate.Admin().MFAEnabled)

	creds := Credentials{Email: "owner@example.com", Password: "correct horse"}
	_, err = gate.Login(context.Background(), creds)
	require.ErrorIs(t, err, apperrors.ErrMFARequired)

	creds.OTP = "000000"
	code, err := totp.GenerateCode(enrollment.Secret, now)
	require.NoError(t, err)
	if code == creds.OTP {
		creds.OTP = "111111"
	}
	_, err = gate.Login(context.Background(), creds)
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	creds.OTP = code
	result, err := gate.Login(context.Background(), creds)
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)

	claims, err := gate.Authenticate(result.AccessToken)
	require.NoError(t, err)
	require.True(t, claims.MFA)
	require.True(t, gate.Authorize(claims))
}

func TestAdminGateRejectsTokensWithoutMFAOnceEnabled(t *testing.T) {
	enrollment, err := mfa.Generate("Leadflow", "owner@example.com")
	require.NoError(t, err)
	gate := newTestGate(t, enrollment.Secret, time.Now)

	require.False(t, gate.Authorize(&Claims{Email: "owner@example.com", Role: RoleAdmin}))
	require.True(t, gate.Authorize(&Claims{Email: "owner@example.com", Role: RoleAdmin, MFA: true}))
}

func TestAdminGateAuthorize(t *testing.T) {
	gate := newTestGate(t, "", time.Now)

	require.False(t, gate.Authorize(nil))
	require.False(t, gate.Authorize(&Claims{Email: "owner@example.com", Role: "viewer"}))
	require.False(t, gate.Authorize(&Claims{Email: "someone@example.com", Role: RoleAdmin}))
	require.True(t, gate.Authorize(&Claims{Email: "OWNER@example.com", Role: RoleAdmin}))

	_, err := gate.Authenticate("not-a-token")
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
}
