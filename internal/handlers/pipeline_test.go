package handlers_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/leadflow/internal/handlers"
	"github.com/charlesng35/leadflow/internal/handlers/testutil"
	"github.com/charlesng35/leadflow/internal/pipeline"
	"github.com/charlesng35/leadflow/internal/services"
)

func TestPipelineHandlerRunsBoardObservers(t *testing.T) {
	env := testutil.NewEnv(t)

	lead, err := env.Services.Leads.CreateLead(context.Background(), services.CreateLeadInput{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	stages := env.Services.Stages.ListStages(context.Background())
	require.GreaterOrEqual(t, len(stages), 2)

	var moves []pipeline.Move
	handler := handlers.NewPipelineHandler(env.Services.Board(), pipeline.WithObserver(func(_ context.Context, m pipeline.Move) {
		moves = append(moves, m)
	}))
	router := gin.New()
	router.POST("/moves", handler.Move)

	body := fmt.Sprintf(`{"lead_id":%q,"stage_id":%q}`, lead.ID, stages[1].ID)
	req := httptest.NewRequest(http.MethodPost, "/moves", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.Len(t, moves, 1)
	require.Equal(t, lead.ID, moves[0].Lead.ID)
	require.Equal(t, stages[1].ID, moves[0].ToStage)
	require.Equal(t, stages[0].ID, *moves[0].FromStage)
}
