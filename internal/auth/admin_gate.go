package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/leadflow/internal/auth/mfa"
	"github.com/charlesng35/leadflow/pkg/crypto"
	apperrors "github.com/charlesng35/leadflow/pkg/errors"
	"github.com/charlesng35/leadflow/pkg/logger"
	"github.com/charlesng35/leadflow/pkg/metrics"
)

// AdminGateConfig describes the single administrator account.
type AdminGateConfig struct {
	Email        string
	PasswordHash string
	TOTPSecret   string
	Clock        func() time.Time
}

// Credentials are submitted on login.
type Credentials struct {
	Email    string
	Password string
	OTP      string
}

// Admin is the public view of the authenticated administrator.
type Admin struct {
	Email      string `json:"email"`
	Role       string `json:"role"`
	MFAEnabled bool   `json:"mfa_enabled"`
}

// LoginResult carries the issued access token.
type LoginResult struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	Admin       Admin     `json:"admin"`
}

// AdminGate authenticates the single admin and authorizes admin tokens.
type AdminGate struct {
	email  string
	hash   string
	secret string
	tokens *JWTService
	now    func() time.Time
	log    *zap.Logger
}

// NewAdminGate validates the admin configuration and builds a gate.
func NewAdminGate(cfg AdminGateConfig, tokens *JWTService) (*AdminGate, error) {
	if tokens == nil {
		return nil, errors.New("admin gate: jwt service is required")
	}

	email := strings.TrimSpace(cfg.Email)
	if email == "" {
		return nil, errors.New("admin gate: admin email is required")
	}
	if !crypto.IsPasswordHash(cfg.PasswordHash) {
		return nil, errors.New("admin gate: admin password hash is required")
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &AdminGate{
		email:  email,
		hash:   cfg.PasswordHash,
		secret: strings.TrimSpace(cfg.TOTPSecret),
		tokens: tokens,
		now:    now,
		log:    logger.WithModule("auth"),
	}, nil
}

// Admin returns the configured administrator.
func (g *AdminGate) Admin() Admin {
	return Admin{Email: g.email, Role: RoleAdmin, MFAEnabled: g.secret != ""}
}

// Login checks the submitted credentials and issues an access token.
func (g *AdminGate) Login(_ context.Context, creds Credentials) (*LoginResult, error) {
	email := strings.TrimSpace(creds.Email)
	if email == "" || creds.Password == "" {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}

	passwordOK := crypto.VerifyPassword(g.hash, creds.Password)
	if !crypto.EqualFold(email, g.email) || !passwordOK {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		g.log.Warn("admin login rejected", zap.String("email", email))
		return nil, apperrors.ErrInvalidCredentials
	}

	if g.secret != "" {
		if strings.TrimSpace(creds.OTP) == "" {
			metrics.AuthAttempts.WithLabelValues("mfa_required").Inc()
			return nil, apperrors.ErrMFARequired
		}
		if !mfa.Validate(creds.OTP, g.secret, g.now()) {
			metrics.AuthAttempts.WithLabelValues("failure").Inc()
			g.log.Warn("admin one-time code rejected", zap.String("email", email))
			return nil, apperrors.ErrInvalidCredentials
		}
	}

	token, expiresAt, err := g.tokens.GenerateAccessToken(AccessTokenInput{
		Email: g.email,
		Role:  RoleAdmin,
		MFA:   g.secret != "",
	})
	if err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	g.log.Info("admin logged in", zap.String("email", g.email))

	return &LoginResult{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		Admin:       g.Admin(),
	}, nil
}

// Authenticate validates a bearer token and returns its claims.
func (g *AdminGate) Authenticate(token string) (*Claims, error) {
	claims, err := g.tokens.ValidateAccessToken(token)
	if err != nil {
		return nil, apperrors.ErrUnauthorized.WithInternal(err)
	}
	return claims, nil
}

// Authorize reports whether claims belong to the configured administrator.
// Once a TOTP secret is configured, tokens issued without a one-time code
// no longer pass.
func (g *AdminGate) Authorize(claims *Claims) bool {
	if claims == nil || claims.Role != RoleAdmin || !crypto.EqualFold(claims.Email, g.email) {
		return false
	}
	return g.secret == "" || claims.MFA
}
