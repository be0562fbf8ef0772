package middleware

import (
	"context"
	"strings"

	"codejudge/internal/common/auth"
	pkgerrors "codejudge/pkg/errors"
	"codejudge/pkg/utils/contextkey"
	"codejudge/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

const (
	AuthModePublic    = "public"
	AuthModeOptional  = "optional"
	AuthModeProtected = "protected"

	accountIDContextKey = "account_id"
	roleContextKey      = "account_role"
)

// Authenticator resolves a bearer token to a principal.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (auth.Principal, error)
}

// AuthPolicy selects how a route treats the Authorization header.
type AuthPolicy struct {
	Mode  string
	Roles []string
}

// AuthMiddleware validates the bearer token and stores the account id in the request context.
// Optional routes accept anonymous callers but still reject a malformed token.
func AuthMiddleware(authenticator Authenticator, policy AuthPolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		mode := strings.ToLower(policy.Mode)
		if mode == AuthModePublic {
			c.Next()
			return
		}
		token := extractBearerToken(c.GetHeader("Authorization"))
		if token == "" && mode == AuthModeOptional {
			c.Next()
			return
		}
		if authenticator == nil {
			response.AbortWithErrorCode(c, pkgerrors.ServiceUnavailable, "auth service unavailable")
			return
		}

		principal, err := authenticator.Authenticate(c.Request.Context(), token)
		if err != nil {
			response.AbortWithError(c, err)
			return
		}
		if len(policy.Roles) > 0 && !hasRole(principal.Role, policy.Roles) {
			response.AbortWithErrorCode(c, pkgerrors.Forbidden, "insufficient role")
			return
		}

		c.Set(accountIDContextKey, principal.AccountID)
		c.Set(roleContextKey, principal.Role)
		ctx := context.WithValue(c.Request.Context(), contextkey.AccountID, principal.AccountID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// AccountID returns the authenticated account id, if any.
func AccountID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(accountIDContextKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok && id > 0
}

func extractBearerToken(authHeader string) string {
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func hasRole(role string, allowed []string) bool {
	for _, item := range allowed {
		if strings.EqualFold(role, item) {
			return true
		}
	}
	return false
}
