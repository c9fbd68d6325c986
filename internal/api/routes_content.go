package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/leadflow/internal/handlers"
)

func registerContentRoutes(api *gin.RouterGroup, svc *Services) {
	content := handlers.NewContentHandler(svc.Content)

	testimonials := api.Group("/testimonials")
	{
		testimonials.GET("", content.ListTestimonials)
		testimonials.POST("", content.CreateTestimonial)
		testimonials.PATCH("/:id", content.UpdateTestimonial)
		testimonials.DELETE("/:id", content.DeleteTestimonial)
	}

	projects := api.Group("/projects")
	{
		projects.GET("", content.ListProjects)
		projects.POST("", content.CreateProject)
		projects.PATCH("/:id", content.UpdateProject)
		projects.DELETE("/:id", content.DeleteProject)
	}

	if svc.Media == nil {
		return
	}
	media := handlers.NewMediaHandler(svc.Media)
	group := api.Group("/media")
	{
		group.GET("", media.List)
		group.POST("", media.Upload)
		group.DELETE("/:id", media.Delete)
	}
}
