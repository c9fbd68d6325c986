package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/charlesng35/leadflow/pkg/logger"
)

func TestLoggerMiddlewareLevels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zap.DebugLevel)
	t.Cleanup(logger.Replace(zap.New(core)))

	r := gin.New()
	r.Use(Logger())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/api/leads", func(c *gin.Context) {
		c.Set(CtxAdminEmailKey, "owner@example.com")
		c.Status(http.StatusNotFound)
	})
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	for _, path := range []string{"/ping", "/api/leads", "/boom"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := recorded.All()
	require.Len(t, entries, 3)

	require.Equal(t, zapcore.InfoLevel, entries[0].Level)
	require.Equal(t, "/ping", entries[0].ContextMap()["path"])
	require.NotContains(t, entries[0].ContextMap(), "admin")

	require.Equal(t, zapcore.WarnLevel, entries[1].Level)
	require.Equal(t, "owner@example.com", entries[1].ContextMap()["admin"])
	require.EqualValues(t, http.StatusNotFound, entries[1].ContextMap()["status"])

	require.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	require.Equal(t, "http", entries[2].ContextMap()["module"])
}
