package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/leadflow/internal/models"
	"github.com/charlesng35/leadflow/internal/pipeline"
	"github.com/charlesng35/leadflow/pkg/response"
)

// PipelineHandler renders the kanban board and applies drag-and-drop moves.
// Each request loads a fresh board so concurrent admins never act on a stale
// in-memory copy; the store stays last-write-wins.
type PipelineHandler struct {
	repo pipeline.Repository
	opts []pipeline.Option
}

// NewPipelineHandler builds boards over repo; opts apply to every board, so
// observers registered here see each move made through the API.
func NewPipelineHandler(repo pipeline.Repository, opts ...pipeline.Option) *PipelineHandler {
	return &PipelineHandler{repo: repo, opts: opts}
}

type pipelineMoveRequest struct {
	LeadID  string `json:"lead_id" validate:"required"`
	StageID string `json:"stage_id" validate:"required"`
}

type pipelineMoveResponse struct {
	Lead  *models.Lead  `json:"lead"`
	Board pipeline.View `json:"board"`
}

// GET /api/pipeline
func (h *PipelineHandler) Show(c *gin.Context) {
	board, err := pipeline.NewBoard(h.repo, h.opts...)
	if err != nil {
		response.Error(c, err)
		return
	}

	view, err := board.Load(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// POST /api/pipeline/moves
func (h *PipelineHandler) Move(c *gin.Context) {
	var req pipelineMoveRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ctx := requestContext(c)
	board, err := pipeline.NewBoard(h.repo, h.opts...)
	if err != nil {
		response.Error(c, err)
		return
	}
	if _, err := board.Load(ctx); err != nil {
		response.Error(c, err)
		return
	}

	lead, err := board.Move(ctx, strings.TrimSpace(req.LeadID), strings.TrimSpace(req.StageID))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, pipelineMoveResponse{Lead: lead, Board: board.View()})
}
