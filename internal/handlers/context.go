package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/leadflow/internal/auditctx"
	"github.com/charlesng35/leadflow/internal/middleware"
)

// requestContext returns the request context, tagged with the authenticated
// admin when there is one, with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	req := c.Request
	if req == nil {
		return context.Background()
	}
	ctx := req.Context()
	if claims, ok := middleware.ClaimsFromContext(c); ok && claims != nil {
		ctx = auditctx.WithActor(ctx, auditctx.Actor{
			Email:     claims.Email,
			IPAddress: c.ClientIP(),
			UserAgent: req.UserAgent(),
		})
	}
	return ctx
}
