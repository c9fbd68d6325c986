package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/leadflow/internal/handlers"
	"github.com/charlesng35/leadflow/internal/pipeline"
	"github.com/charlesng35/leadflow/pkg/logger"
)

func registerLeadRoutes(api *gin.RouterGroup, svc *Services) {
	leads := handlers.NewLeadHandler(svc.Leads, svc.Clients)
	group := api.Group("/leads")
	{
		group.GET("", leads.List)
		group.POST("", leads.Create)
		group.GET("/:id", leads.Get)
		group.PATCH("/:id", leads.Update)
		group.DELETE("/:id", leads.Delete)
		group.POST("/:id/move", leads.Move)
		group.GET("/:id/history", leads.History)
		group.POST("/:id/convert", leads.Convert)
	}

	api.GET("/stages", handlers.NewStageHandler(svc.Stages).List)

	board := handlers.NewPipelineHandler(svc.Board(),
		pipeline.WithObserver(pipeline.LogMoves(logger.WithModule("pipeline"))),
	)
	api.GET("/pipeline", board.Show)
	api.POST("/pipeline/moves", board.Move)
}
