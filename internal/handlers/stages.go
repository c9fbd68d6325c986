package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/leadflow/internal/services"
	"github.com/charlesng35/leadflow/pkg/response"
)

// StageHandler serves the read-only stage catalog.
type StageHandler struct {
	stages *services.StageService
}

func NewStageHandler(stages *services.StageService) *StageHandler {
	return &StageHandler{stages: stages}
}

// GET /api/stages
func (h *StageHandler) List(c *gin.Context) {
	response.Success(c, http.StatusOK, h.stages.ListStages(requestContext(c)))
}
