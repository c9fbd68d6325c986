package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/leadflow/internal/handlers"
)

// registerPublicRoutes mounts the endpoints the marketing website calls
// without credentials.
func registerPublicRoutes(r *gin.Engine, svc *Services, limiter gin.HandlerFunc) {
	leads := handlers.NewLeadHandler(svc.Leads, nil)
	content := handlers.NewContentHandler(svc.Content)
	chat := handlers.NewChatHandler(svc.Chat)

	r.POST("/leads", limiter, leads.Capture)
	r.POST("/api/chat", limiter, chat.Reply)

	public := r.Group("/api/public")
	{
		public.GET("/testimonials", content.PublicTestimonials)
		public.GET("/projects", content.PublicProjects)
	}
}
