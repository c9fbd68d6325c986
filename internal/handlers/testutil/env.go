package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/leadflow/internal/api"
	"github.com/charlesng35/leadflow/internal/app"
	iauth "github.com/charlesng35/leadflow/internal/auth"
	sharedtestutil "github.com/charlesng35/leadflow/internal/database/testutil"
	"github.com/charlesng35/leadflow/internal/events"
	"github.com/charlesng35/leadflow/internal/middleware"
	"github.com/charlesng35/leadflow/internal/monitoring"
	"github.com/charlesng35/leadflow/internal/monitoring/checks"
	"github.com/charlesng35/leadflow/internal/realtime"
	"github.com/charlesng35/leadflow/internal/security"
	"github.com/charlesng35/leadflow/internal/storage"
	"github.com/charlesng35/leadflow/pkg/crypto"
	"github.com/charlesng35/leadflow/pkg/response"
)

const (
	AdminEmail    = "owner@example.com"
	AdminPassword = "correct horse battery staple"
)

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T        *testing.T
	DB       *gorm.DB
	Router   *gin.Engine
	Services *api.Services
	Bus      *events.Bus
	Hub      *realtime.Hub
	Uploads  string
	token    string
}

// NewEnv provisions a fresh handler test environment. dbOpts default to the
// seeded default pipeline.
func NewEnv(t *testing.T, dbOpts ...sharedtestutil.TestDBOption) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	if len(dbOpts) == 0 {
		dbOpts = []sharedtestutil.TestDBOption{sharedtestutil.WithSeedData()}
	}
	db := sharedtestutil.MustOpenTestDB(t, dbOpts...)

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "test-suite-super-secret-key-32-bytes!!",
		Issuer:         "test-suite",
		AccessTokenTTL: time.Hour,
	})
	require.NoError(t, err)

	hash, err := crypto.HashPassword(AdminPassword)
	require.NoError(t, err)
	gate, err := iauth.NewAdminGate(iauth.AdminGateConfig{Email: AdminEmail, PasswordHash: hash}, jwtSvc)
	require.NoError(t, err)

	uploads := t.TempDir()
	store, err := storage.NewLocalStore(uploads, "/uploads")
	require.NoError(t, err)

	bus := events.NewBus()
	hub := realtime.NewHub()
	svc, err := api.NewServices(db, api.ServiceConfig{
		Broadcaster: hub,
		Bus:         bus,
		Storage:     store,
	})
	require.NoError(t, err)

	cfg := &app.Config{
		Notifications: app.NotificationsConfig{Enabled: true},
		Storage:       app.StorageConfig{Local: app.LocalStorageConfig{PublicBaseURL: "/uploads"}},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
			Health:     app.HealthConfig{Enabled: true},
		},
	}

	router, err := api.NewRouter(api.Dependencies{
		Config:     cfg,
		Services:   svc,
		Gate:       gate,
		Hub:        hub,
		Health:     monitoring.NewHealthManager(checks.Database(db, time.Second), checks.Realtime(hub)),
		RateStore:  middleware.NewMemoryRateStore(),
		Audit:      security.NewAuditService(db, cfg),
		UploadsDir: uploads,
	})
	require.NoError(t, err)

	return &Env{
		T:        t,
		DB:       db,
		Router:   router,
		Services: svc,
		Bus:      bus,
		Hub:      hub,
		Uploads:  uploads,
	}
}

// Token logs the administrator in once and returns the access token.
func (e *Env) Token() string {
	e.T.Helper()
	if e.token != "" {
		return e.token
	}

	w := e.Request(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    AdminEmail,
		"password": AdminPassword,
	}, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	var result iauth.LoginResult
	DecodeInto(e.T, DecodeResponse(e.T, w).Data, &result)
	require.NotEmpty(e.T, result.AccessToken)

	e.token = result.AccessToken
	return e.token
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(e.T, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.serve(req, token)
}

// Admin executes an authenticated request as the administrator.
func (e *Env) Admin(method, path string, body any) *httptest.ResponseRecorder {
	e.T.Helper()
	return e.Request(method, path, body, e.Token())
}

// Upload posts content as the multipart field "file" with the admin token.
func (e *Env) Upload(path, fileName string, content []byte) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", fileName)
	require.NoError(e.T, err)
	_, err = part.Write(content)
	require.NoError(e.T, err)
	require.NoError(e.T, writer.Close())

	req, err := http.NewRequest(http.MethodPost, path, &buf)
	require.NoError(e.T, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return e.serve(req, e.Token())
}

func (e *Env) serve(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
