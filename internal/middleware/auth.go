package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/charlesng35/leadflow/internal/auth"
	"github.com/charlesng35/leadflow/pkg/errors"
	"github.com/charlesng35/leadflow/pkg/response"
)

const (
	CtxClaimsKey     = "authClaims"
	CtxAdminEmailKey = "adminEmail"
)

// TokenAuthenticator validates bearer tokens.
type TokenAuthenticator interface {
	Authenticate(token string) (*iauth.Claims, error)
}

// Authorizer decides whether authenticated claims may use the admin API.
type Authorizer interface {
	Authorize(claims *iauth.Claims) bool
}

// Auth enforces bearer token authentication. Websocket upgrades may pass the
// token as the "token" query parameter since browsers cannot set headers there.
func Auth(authenticator TokenAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		claims, err := authenticator.Authenticate(token)
		if err != nil {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxAdminEmailKey, claims.Email)

		c.Next()
	}
}

// RequireAdmin rejects authenticated callers that are not the configured administrator.
func RequireAdmin(authorizer Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, _ := ClaimsFromContext(c)
		if claims == nil {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !authorizer.Authorize(claims) {
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// ClaimsFromContext returns the claims stored by Auth.
func ClaimsFromContext(c *gin.Context) (*iauth.Claims, bool) {
	value, ok := c.Get(CtxClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*iauth.Claims)
	return claims, ok
}

func bearerToken(c *gin.Context) string {
	authz := c.GetHeader("Authorization")
	if len(authz) >= 8 && strings.EqualFold(authz[:7], "Bearer ") {
		return strings.TrimSpace(authz[7:])
	}
	if c.IsWebsocket() {
		return strings.TrimSpace(c.Query("token"))
	}
	return ""
}
