package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/leadflow/internal/services"
	"github.com/charlesng35/leadflow/pkg/response"
)

// ContentHandler serves testimonials and before/after projects, both to the
// admin console and to the public website.
type ContentHandler struct {
	content *services.ContentService
}

func NewContentHandler(content *services.ContentService) *ContentHandler {
	return &ContentHandler{content: content}
}

// GET /api/testimonials
func (h *ContentHandler) ListTestimonials(c *gin.Context) {
	items, err := h.content.ListTestimonials(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, items)
}

// GET /api/public/testimonials
func (h *ContentHandler) PublicTestimonials(c *gin.Context) {
	items, err := h.content.PublicTestimonials(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, items)
}

// POST /api/testimonials
func (h *ContentHandler) CreateTestimonial(c *gin.Context) {
	var input services.TestimonialInput
	if !bindJSON(c, &input) {
		return
	}
	item, err := h.content.CreateTestimonial(requestContext(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, item)
}

// PATCH /api/testimonials/:id
func (h *ContentHandler) UpdateTestimonial(c *gin.Context) {
	var input services.TestimonialInput
	if !bindJSON(c, &input) {
		return
	}
	item, err := h.content.UpdateTestimonial(requestContext(c), c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, item)
}

// DELETE /api/testimonials/:id
func (h *ContentHandler) DeleteTestimonial(c *gin.Context) {
	if err := h.content.DeleteTestimonial(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// GET /api/projects
func (h *ContentHandler) ListProjects(c *gin.Context) {
	items, err := h.content.ListProjects(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, items)
}

// GET /api/public/projects
func (h *ContentHandler) PublicProjects(c *gin.Context) {
	items, err := h.content.PublicProjects(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, items)
}

// POST /api/projects
func (h *ContentHandler) CreateProject(c *gin.Context) {
	var input services.ContentProjectInput
	if !bindJSON(c, &input) {
		return
	}
	item, err := h.content.CreateProject(requestContext(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, item)
}

// PATCH /api/projects/:id
func (h *ContentHandler) UpdateProject(c *gin.Context) {
	var input services.ContentProjectInput
	if !bindJSON(c, &input) {
		return
	}
	item, err := h.content.UpdateProject(requestContext(c), c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, item)
}

// DELETE /api/projects/:id
func (h *ContentHandler) DeleteProject(c *gin.Context) {
	if err := h.content.DeleteProject(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
