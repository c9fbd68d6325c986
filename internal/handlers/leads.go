package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/leadflow/internal/models"
	"github.com/charlesng35/leadflow/internal/services"
	apperrors "github.com/charlesng35/leadflow/pkg/errors"
	"github.com/charlesng35/leadflow/pkg/response"
)

// LeadHandler exposes the lead registry over HTTP.
type LeadHandler struct {
	leads   *services.LeadService
	clients *services.ClientService
}

// NewLeadHandler constructs a lead handler. clients may be nil when lead
// conversion is not exposed.
func NewLeadHandler(leads *services.LeadService, clients *services.ClientService) *LeadHandler {
	return &LeadHandler{leads: leads, clients: clients}
}

type captureResponse struct {
	Success bool         `json:"success"`
	Lead    *models.Lead `json:"lead,omitempty"`
	Error   string       `json:"error,omitempty"`
}

type moveLeadRequest struct {
	StageID string `json:"stage_id" validate:"required"`
}

// Capture handles POST /leads from the public website form. It keeps the
// flat {success, lead} envelope the website already consumes: every failure
// is a 500 carrying the error message.
func (h *LeadHandler) Capture(c *gin.Context) {
	var input services.CaptureInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusInternalServerError, captureResponse{Error: "invalid JSON payload"})
		return
	}

	lead, err := h.leads.CaptureLead(requestContext(c), input)
	if err != nil {
		appErr := apperrors.FromError(err)
		if appErr.Internal != nil {
			_ = c.Error(appErr.Internal)
		}
		c.JSON(http.StatusInternalServerError, captureResponse{Error: appErr.Message})
		return
	}

	c.JSON(http.StatusCreated, captureResponse{Success: true, Lead: lead})
}

// GET /api/leads
func (h *LeadHandler) List(c *gin.Context) {
	leads, err := h.leads.ListLeads(requestContext(c), services.LeadFilter{
		Search:   c.Query("search"),
		Status:   models.LeadStatus(strings.TrimSpace(c.Query("status"))),
		Priority: models.LeadPriority(strings.TrimSpace(c.Query("priority"))),
		StageID:  strings.TrimSpace(c.Query("stage_id")),
		Limit:    parseIntQuery(c, "limit", 0),
		Offset:   parseIntQuery(c, "offset", 0),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, leads)
}

// POST /api/leads
func (h *LeadHandler) Create(c *gin.Context) {
	var input services.CreateLeadInput
	if !bindJSON(c, &input) {
		return
	}

	lead, err := h.leads.CreateLead(requestContext(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, lead)
}

// GET /api/leads/:id
func (h *LeadHandler) Get(c *gin.Context) {
	lead, err := h.leads.GetLead(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, lead)
}

// PATCH /api/leads/:id
func (h *LeadHandler) Update(c *gin.Context) {
	var input services.UpdateLeadInput
	if !bindJSON(c, &input) {
		return
	}

	lead, err := h.leads.UpdateLead(requestContext(c), c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, lead)
}

// DELETE /api/leads/:id
func (h *LeadHandler) Delete(c *gin.Context) {
	if err := h.leads.DeleteLead(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// POST /api/leads/:id/move
func (h *LeadHandler) Move(c *gin.Context) {
	var req moveLeadRequest
	if !bindAndValidate(c, &req) {
		return
	}

	lead, err := h.leads.MoveLeadToStage(requestContext(c), c.Param("id"), strings.TrimSpace(req.StageID))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, lead)
}

// GET /api/leads/:id/history
func (h *LeadHandler) History(c *gin.Context) {
	history, err := h.leads.History(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, history)
}

// POST /api/leads/:id/convert
func (h *LeadHandler) Convert(c *gin.Context) {
	if h.clients == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	client, err := h.clients.ConvertLead(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, client)
}
