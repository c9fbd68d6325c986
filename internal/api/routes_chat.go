package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/leadflow/internal/handlers"
)

func registerChatRoutes(api *gin.RouterGroup, handler *handlers.ChatHandler) {
	group := api.Group("/chat/sessions")
	{
		group.GET("", handler.Sessions)
		group.GET("/:id", handler.Transcript)
	}
}
