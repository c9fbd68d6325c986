package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/leadflow/internal/services"
	"github.com/charlesng35/leadflow/pkg/response"
)

// ChatHandler serves the website chatbot and its admin transcript views.
type ChatHandler struct {
	chat *services.ChatService
}

func NewChatHandler(chat *services.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// POST /api/chat
func (h *ChatHandler) Reply(c *gin.Context) {
	var input services.ChatInput
	if !bindJSON(c, &input) {
		return
	}
	reply, err := h.chat.Reply(requestContext(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, reply)
}

// GET /api/chat/sessions
func (h *ChatHandler) Sessions(c *gin.Context) {
	sessions, err := h.chat.Sessions(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, sessions)
}

// GET /api/chat/sessions/:id
func (h *ChatHandler) Transcript(c *gin.Context) {
	messages, err := h.chat.Transcript(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, messages)
}
