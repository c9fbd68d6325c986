package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/leadflow/internal/handlers"
)

func registerClientRoutes(api *gin.RouterGroup, handler *handlers.ClientHandler) {
	group := api.Group("/clients")
	{
		group.GET("", handler.List)
		group.POST("", handler.Create)
		group.GET("/:id", handler.Get)
		group.PATCH("/:id", handler.Update)
		group.DELETE("/:id", handler.Delete)
	}
}
