package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/leadflow/internal/monitoring"
	"github.com/charlesng35/leadflow/pkg/response"
)

// Health evaluates the registered probes. A down dependency answers 503 so
// load balancers stop routing to the instance; degraded still answers 200.
func Health(manager *monitoring.HealthManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if manager == nil {
			response.Success(c, http.StatusOK, gin.H{"status": monitoring.StatusUp})
			return
		}

		report := manager.Evaluate(requestContext(c))
		status := http.StatusOK
		if report.Status == monitoring.StatusDown {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, response.Response{Success: report.Status != monitoring.StatusDown, Data: report})
	}
}
