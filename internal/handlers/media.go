package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/leadflow/internal/services"
	apperrors "github.com/charlesng35/leadflow/pkg/errors"
	"github.com/charlesng35/leadflow/pkg/response"
)

const mediaFormField = "file"

// multipart overhead allowed on top of the file itself
const multipartSlack = 1 << 20

// MediaHandler accepts image and video uploads for the content editor.
type MediaHandler struct {
	media *services.MediaService
}

func NewMediaHandler(media *services.MediaService) *MediaHandler {
	return &MediaHandler{media: media}
}

// GET /api/media
func (h *MediaHandler) List(c *gin.Context) {
	uploads, err := h.media.List(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, uploads)
}

// POST /api/media (multipart, field "file")
func (h *MediaHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.media.MaxBytes()+multipartSlack)

	header, err := c.FormFile(mediaFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, apperrors.NewValidation(fmt.Sprintf("file exceeds the %d byte limit", h.media.MaxBytes())))
			return
		}
		response.Error(c, apperrors.NewBadRequest("multipart field \"file\" is required"))
		return
	}

	file, err := header.Open()
	if err != nil {
		response.Error(c, apperrors.NewBadRequest("uploaded file could not be read"))
		return
	}
	defer file.Close()

	upload, err := h.media.Upload(requestContext(c), header.Filename, file, header.Size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, upload)
}

// DELETE /api/media/:id
func (h *MediaHandler) Delete(c *gin.Context) {
	if err := h.media.Delete(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
