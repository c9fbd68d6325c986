// Package security audits the deployment for weak authentication and
// exposure settings.
package security

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/leadflow/internal/app"
	"github.com/charlesng35/leadflow/internal/models"
)

// CheckStatus captures the outcome of a security audit check.
type CheckStatus string

const (
	StatusPass CheckStatus = "pass"
	StatusWarn CheckStatus = "warn"
	StatusFail CheckStatus = "fail"
)

const maxRecommendedTokenTTL = 24 * time.Hour

// Check contains the result of a single audit verification.
type Check struct {
	ID          string      `json:"id"`
	Status      CheckStatus `json:"status"`
	Message     string      `json:"message"`
	Remediation string      `json:"remediation,omitempty"`
	Details     any         `json:"details,omitempty"`
}

// Result aggregates all checks with a simple status summary.
type Result struct {
	CheckedAt time.Time      `json:"checked_at"`
	Checks    []Check        `json:"checks"`
	Summary   map[string]int `json:"summary"`
}

// Failed reports whether any check failed.
func (r Result) Failed() bool {
	return r.Summary[string(StatusFail)] > 0
}

// AuditService evaluates the admin gate, token and exposure configuration.
type AuditService struct {
	db  *gorm.DB
	cfg *app.Config
	now func() time.Time
}

// NewAuditService constructs the audit service. All dependencies are optional; missing
// inputs degrade specific checks to warnings.
func NewAuditService(db *gorm.DB, cfg *app.Config) *AuditService {
	return &AuditService{
		db:  db,
		cfg: cfg,
		now: time.Now,
	}
}

// WithClock overrides the clock used in results (primarily for testing).
func (s *AuditService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Run executes all audit checks and returns their outcome.
func (s *AuditService) Run(ctx context.Context) Result {
	if ctx == nil {
		ctx = context.Background()
	}

	checks := []Check{
		s.checkStageCatalog(ctx),
		s.checkJWTSecret(),
		s.checkAdminMFA(),
		s.checkTokenTTL(),
		s.checkCORSOrigins(),
		s.checkRateLimit(),
	}

	summary := map[string]int{
		string(StatusPass): 0,
		string(StatusWarn): 0,
		string(StatusFail): 0,
	}

	for _, check := range checks {
		summary[string(check.Status)]++
	}

	return Result{
		CheckedAt: s.now().UTC(),
		Checks:    checks,
		Summary:   summary,
	}
}

func missingConfig(id string) Check {
	return Check{
		ID:          id,
		Status:      StatusWarn,
		Message:     "Configuration not loaded, unable to evaluate.",
		Remediation: "Load configuration before running the security audit.",
	}
}

func (s *AuditService) checkStageCatalog(ctx context.Context) Check {
	if s.db == nil {
		return Check{
			ID:          "stage_catalog",
			Status:      StatusWarn,
			Message:     "Database unavailable, unable to inspect the stage catalog.",
			Remediation: "Ensure database connectivity before running the audit.",
		}
	}

	var stages []models.PipelineStage
	if err := s.db.WithContext(ctx).Order("order_index ASC").Find(&stages).Error; err != nil {
		return Check{
			ID:          "stage_catalog",
			Status:      StatusWarn,
			Message:     fmt.Sprintf("Could not read pipeline stages: %v", err),
			Remediation: "Retry after resolving database errors.",
		}
	}

	if len(stages) == 0 {
		return Check{
			ID:          "stage_catalog",
			Status:      StatusFail,
			Message:     "No pipeline stages exist; captured leads cannot be placed on the board.",
			Remediation: "Run `leadflow stages seed` or configure pipeline.stages.",
		}
	}

	var unmapped []string
	for _, stage := range stages {
		if stage.Status == "" {
			unmapped = append(unmapped, stage.Name)
		}
	}
	if len(unmapped) > 0 {
		return Check{
			ID:          "stage_catalog",
			Status:      StatusWarn,
			Message:     fmt.Sprintf("%d stages have no explicit status and rely on name matching.", len(unmapped)),
			Remediation: "Set a status for every entry in pipeline.stages.",
			Details:     map[string]any{"stages": unmapped},
		}
	}

	return Check{
		ID:      "stage_catalog",
		Status:  StatusPass,
		Message: fmt.Sprintf("%d stages with explicit statuses.", len(stages)),
		Details: map[string]any{"count": len(stages)},
	}
}

func (s *AuditService) checkJWTSecret() Check {
	if s.cfg == nil {
		return missingConfig("jwt_secret_strength")
	}

	length := len(strings.TrimSpace(s.cfg.Auth.JWT.Secret))

	switch {
	case length == 0:
		return Check{
			ID:          "jwt_secret_strength",
			Status:      StatusFail,
			Message:     "Missing JWT signing secret.",
			Remediation: "Provide a cryptographically secure signing secret (>= 32 bytes).",
		}
	case length < 32:
		return Check{
			ID:          "jwt_secret_strength",
			Status:      StatusFail,
			Message:     fmt.Sprintf("JWT signing secret is too short (%d bytes).", length),
			Remediation: "Use a randomly generated secret of at least 32 bytes.",
		}
	case length < 48:
		return Check{
			ID:          "jwt_secret_strength",
			Status:      StatusWarn,
			Message:     fmt.Sprintf("JWT signing secret is %d bytes. Consider increasing to 48+ bytes.", length),
			Remediation: "Increase the length of LEADFLOW_AUTH_JWT_SECRET to at least 48 bytes.",
			Details:     map[string]any{"length": length},
		}
	default:
		return Check{
			ID:      "jwt_secret_strength",
			Status:  StatusPass,
			Message: fmt.Sprintf("JWT signing secret length is %d bytes.", length),
			Details: map[string]any{"length": length},
		}
	}
}

func (s *AuditService) checkAdminMFA() Check {
	if s.cfg == nil {
		return missingConfig("admin_mfa")
	}

	if strings.TrimSpace(s.cfg.Admin.TOTPSecret) == "" {
		return Check{
			ID:          "admin_mfa",
			Status:      StatusWarn,
			Message:     "The admin account signs in with a password only.",
			Remediation: "Run `leadflow admin totp <email>` and set admin.totp_secret.",
		}
	}

	return Check{
		ID:      "admin_mfa",
		Status:  StatusPass,
		Message: "Admin sign-in requires a one-time code.",
	}
}

func (s *AuditService) checkTokenTTL() Check {
	if s.cfg == nil {
		return missingConfig("access_token_ttl")
	}

	ttl := s.cfg.Auth.JWT.TTL
	if ttl <= 0 {
		return Check{
			ID:          "access_token_ttl",
			Status:      StatusWarn,
			Message:     "Access token TTL is not configured; using default duration.",
			Remediation: "Set LEADFLOW_AUTH_JWT_ACCESS_TOKEN_TTL to control session lifetime.",
		}
	}

	if ttl > maxRecommendedTokenTTL {
		return Check{
			ID:          "access_token_ttl",
			Status:      StatusWarn,
			Message:     fmt.Sprintf("Access token TTL (%s) exceeds recommended maximum (%s).", ttl, maxRecommendedTokenTTL),
			Remediation: "Reduce the access token TTL to limit exposure of a leaked token.",
			Details:     map[string]any{"ttl": ttl.String()},
		}
	}

	return Check{
		ID:      "access_token_ttl",
		Status:  StatusPass,
		Message: fmt.Sprintf("Access token TTL is %s.", ttl),
		Details: map[string]any{"ttl": ttl.String()},
	}
}

func (s *AuditService) checkCORSOrigins() Check {
	if s.cfg == nil {
		return missingConfig("cors_origins")
	}

	for _, origin := range s.cfg.Server.CORSOrigins {
		if strings.TrimSpace(origin) == "*" {
			return Check{
				ID:          "cors_origins",
				Status:      StatusWarn,
				Message:     "Any origin may call the API and open the live feed.",
				Remediation: "List the website and admin origins in server.cors_origins.",
			}
		}
	}

	return Check{
		ID:      "cors_origins",
		Status:  StatusPass,
		Message: fmt.Sprintf("%d allowed origins.", len(s.cfg.Server.CORSOrigins)),
	}
}

func (s *AuditService) checkRateLimit() Check {
	if s.cfg == nil {
		return missingConfig("public_rate_limit")
	}

	limit := s.cfg.Server.RateLimit
	if !limit.Enabled || limit.Requests <= 0 {
		return Check{
			ID:          "public_rate_limit",
			Status:      StatusWarn,
			Message:     "Public lead capture, chat and login endpoints are not rate limited.",
			Remediation: "Enable server.rate_limit.",
		}
	}

	return Check{
		ID:      "public_rate_limit",
		Status:  StatusPass,
		Message: fmt.Sprintf("Public endpoints allow %d requests per %s.", limit.Requests, limit.Window),
	}
}
