package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	appErrors "github.com/charlesng35/leadflow/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)

	Success(ctx, http.StatusCreated, gin.H{"id": "lead-1"})

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decode(t, rec)
	require.True(t, resp.Success)
	require.Nil(t, resp.Error)
	require.Nil(t, resp.Meta)
}

func TestSuccessWithMeta(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)

	SuccessWithMeta(ctx, http.StatusOK, []string{"a", "b"}, &Meta{Total: 12, Limit: 2, Offset: 4, Unread: 3})

	resp := decode(t, rec)
	require.NotNil(t, resp.Meta)
	require.EqualValues(t, 12, resp.Meta.Total)
	require.Equal(t, 2, resp.Meta.Limit)
	require.Equal(t, 4, resp.Meta.Offset)
	require.EqualValues(t, 3, resp.Meta.Unread)
}

func TestErrorWithAppError(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)

	Error(ctx, appErrors.NewValidation("rating must be between 1 and 5"))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.True(t, ctx.IsAborted())
	require.Empty(t, ctx.Errors)

	resp := decode(t, rec)
	require.False(t, resp.Success)
	require.Equal(t, appErrors.ErrValidation.Code, resp.Error.Code)
	require.Equal(t, "rating must be between 1 and 5", resp.Error.Message)
}

func TestErrorHidesInternalCause(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)

	Error(ctx, errors.New("disk full"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Len(t, ctx.Errors, 1)
	require.EqualError(t, ctx.Errors[0].Err, "disk full")

	resp := decode(t, rec)
	require.Equal(t, appErrors.ErrInternalServer.Code, resp.Error.Code)
	require.NotContains(t, rec.Body.String(), "disk full")
}

func TestErrorNil(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)

	Error(ctx, nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
