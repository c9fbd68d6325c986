package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	iauth "github.com/charlesng35/leadflow/internal/auth"
	"github.com/charlesng35/leadflow/internal/middleware"
	"github.com/charlesng35/leadflow/pkg/errors"
	"github.com/charlesng35/leadflow/pkg/response"
)

// AuthHandler signs the administrator in and describes the current session.
type AuthHandler struct {
	gate *iauth.AdminGate
}

func NewAuthHandler(gate *iauth.AdminGate) *AuthHandler {
	return &AuthHandler{gate: gate}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	OTP      string `json:"otp" validate:"omitempty,numeric,len=6"`
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.gate.Login(requestContext(c), iauth.Credentials{
		Email:    req.Email,
		Password: req.Password,
		OTP:      req.OTP,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	if _, ok := middleware.ClaimsFromContext(c); !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}
	response.Success(c, http.StatusOK, h.gate.Admin())
}
