package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"rentflow/internal/app/checkout"
	"rentflow/internal/app/policies"
	"rentflow/internal/infra/auth"
)

const (
	principalContextKey = "rentflow.principal"
	refreshTokenHeader  = "X-Refresh-Token"
)

// AuthMiddleware resolves the bearer token into a principal. Requests without a valid
// token continue anonymously; handlers that need a renter reject them.
type AuthMiddleware struct {
	Verifier *auth.Verifier
	Logger   *slog.Logger
}

func (m AuthMiddleware) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" || m.Verifier == nil {
		c.Next()
		return
	}
	claims, err := m.Verifier.Verify(token)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Debug("token validation failed", "error", err)
		}
		c.Next()
		return
	}
	setPrincipal(c, checkout.Principal{
		UserID:       claims.Subject,
		AccessToken:  token,
		RefreshToken: strings.TrimSpace(c.GetHeader(refreshTokenHeader)),
	})
	c.Request = c.Request.WithContext(policies.WithBearer(c.Request.Context(), token))
	c.Next()
}

func setPrincipal(c *gin.Context, p checkout.Principal) {
	c.Set(principalContextKey, p)
}

func currentPrincipal(c *gin.Context) (checkout.Principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return checkout.Principal{}, false
	}
	p, ok := val.(checkout.Principal)
	return p, ok && p.UserID != ""
}

func requireRenter(c *gin.Context) (checkout.Principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorBody{Error: errorPayload{Code: "unauthenticated", Message: "sign in required", Navigate: string(checkout.NavSignIn)}})
		return checkout.Principal{}, false
	}
	return p, true
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
