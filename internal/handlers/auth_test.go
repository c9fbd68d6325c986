package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	iauth "github.com/charlesng35/leadflow/internal/auth"
	"github.com/charlesng35/leadflow/internal/handlers/testutil"
	"github.com/charlesng35/leadflow/internal/security"
	"github.com/charlesng35/leadflow/internal/services"
)

func TestLoginAndMe(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    testutil.AdminEmail,
		"password": "wrong password",
	}, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "INVALID_CREDENTIALS", testutil.DecodeResponse(t, w).Error.Code)

	w = env.Request(http.MethodPost, "/api/auth/login", map[string]string{"email": "not-an-email"}, "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.Admin(http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var admin iauth.Admin
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &admin)
	require.Equal(t, testutil.AdminEmail, admin.Email)
	require.Equal(t, iauth.RoleAdmin, admin.Role)
	require.False(t, admin.MFAEnabled)
}

func TestHealthMetricsAndFallback(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := testutil.DecodeResponse(t, w)
	require.True(t, resp.Success)
	require.Contains(t, string(resp.Data), `"database"`)

	w = env.Request(http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = env.Request(http.MethodGet, "/api/nope", nil, env.Token())
	require.Equal(t, http.StatusNotFound, w.Code)

	w = env.Request(http.MethodGet, "/does-not-exist", nil, "")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "NOT_FOUND", testutil.DecodeResponse(t, w).Error.Code)
}

func TestNotificationsReadAndDelete(t *testing.T) {
	env := testutil.NewEnv(t)

	for _, name := range []string{"Hana", "Ivo"} {
		w := env.Admin(http.MethodPost, "/api/leads", map[string]any{"name": name, "email": name + "@example.com"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := env.Admin(http.MethodGet, "/api/notifications?unread=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page services.NotificationPage
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &page)
	require.Len(t, page.Items, 2)

	w = env.Admin(http.MethodPost, "/api/notifications/"+page.Items[0].ID+"/read", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Admin(http.MethodGet, "/api/notifications?unread=true", nil)
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &page)
	require.Len(t, page.Items, 1)
	require.EqualValues(t, 1, page.Unread)

	w = env.Admin(http.MethodPost, "/api/notifications/read", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Admin(http.MethodGet, "/api/notifications", nil)
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &page)
	require.Len(t, page.Items, 2)
	require.Zero(t, page.Unread)

	w = env.Admin(http.MethodDelete, "/api/notifications/"+page.Items[0].ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = env.Admin(http.MethodDelete, "/api/notifications/"+page.Items[0].ID, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestDashboardStatsReflectChanges(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Admin(http.MethodGet, "/api/dashboard/stats", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var stats services.DashboardStats
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &stats)
	require.Zero(t, stats.TotalLeads)

	w = env.Admin(http.MethodPost, "/api/leads", map[string]any{"name": "Joana", "email": "joana@example.com", "estimated_value": 500})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.Admin(http.MethodGet, "/api/dashboard/stats", nil)
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &stats)
	require.EqualValues(t, 1, stats.TotalLeads)
	require.InDelta(t, 500, stats.PipelineValue, 0.001)
	require.EqualValues(t, 1, stats.UnreadNotifications)
}

func TestStagesRoute(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Admin(http.MethodGet, "/api/stages", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stages []struct {
		Name       string `json:"name"`
		OrderIndex int    `json:"order_index"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &stages)
	require.NotEmpty(t, stages)
	for i := 1; i < len(stages); i++ {
		require.Less(t, stages[i-1].OrderIndex, stages[i].OrderIndex)
	}
}

func TestSecurityAuditRoute(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodGet, "/api/security/audit", nil, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.Admin(http.MethodGet, "/api/security/audit", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result security.Result
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &result)
	require.Len(t, result.Checks, 6)
	require.Equal(t, "stage_catalog", result.Checks[0].ID)
	require.Equal(t, security.StatusPass, result.Checks[0].Status)
}
