package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/leadflow/internal/middleware"
	"github.com/charlesng35/leadflow/internal/realtime"
	"github.com/charlesng35/leadflow/pkg/errors"
	"github.com/charlesng35/leadflow/pkg/response"
)

// RealtimeHandler upgrades authenticated admin connections onto the hub.
type RealtimeHandler struct {
	hub *realtime.Hub
}

func NewRealtimeHandler(hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{hub: hub}
}

// Stream handles GET /ws. The route sits behind Auth and RequireAdmin, which
// read the token from the query string for websocket upgrades. Streams are
// chosen with ?streams=notifications,pipeline; unknown names are ignored.
func (h *RealtimeHandler) Stream(c *gin.Context) {
	if h.hub == nil {
		response.Error(c, errors.ErrNotFound)
		return
	}

	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	streams := gatherStreams(c)
	if len(streams) == 0 {
		streams = realtime.DefaultStreams
	}
	h.hub.Serve(claims.Email, streams, c.Writer, c.Request)
}

func gatherStreams(c *gin.Context) []string {
	streams := append([]string(nil), c.QueryArray("stream")...)
	if raw := c.Query("streams"); raw != "" {
		streams = append(streams, strings.Split(raw, ",")...)
	}

	out := make([]string, 0, len(streams))
	for _, stream := range streams {
		if stream = strings.ToLower(strings.TrimSpace(stream)); stream != "" {
			out = append(out, stream)
		}
	}
	return out
}
