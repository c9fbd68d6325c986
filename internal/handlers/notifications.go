package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/leadflow/internal/services"
	"github.com/charlesng35/leadflow/pkg/response"
)

// NotificationHandler exposes HTTP endpoints for admin notifications.
type NotificationHandler struct {
	service *services.NotificationService
}

// NewNotificationHandler constructs a notification handler.
func NewNotificationHandler(service *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

type markReadRequest struct {
	IDs []string `json:"ids"`
}

// List returns the notification feed, newest first.
func (h *NotificationHandler) List(c *gin.Context) {
	limit := parseIntQuery(c, "limit", 25)
	offset := parseIntQuery(c, "offset", 0)

	page, err := h.service.List(requestContext(c), services.NotificationFilter{
		Limit:      limit,
		Offset:     offset,
		UnreadOnly: parseBoolQuery(c, "unread"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, page, &response.Meta{
		Total:  page.Total,
		Limit:  limit,
		Offset: offset,
		Unread: page.Unread,
	})
}

// MarkRead marks a single notification as read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	notification, err := h.service.MarkRead(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, notification)
}

// MarkAllRead marks the listed notifications, or all of them, as read.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	var req markReadRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	updated, err := h.service.MarkAllRead(requestContext(c), req.IDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"updated": updated})
}

// Delete removes a notification.
func (h *NotificationHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
