package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Claims accepts roles either as a top-level "roles" array or nested under
// "realm_access" the way Keycloak issues them.
type Claims struct {
	Email       string      `json:"email,omitempty"`
	Roles       []string    `json:"roles,omitempty"`
	RealmAccess RealmAccess `json:"realm_access,omitempty"`
	jwt.RegisteredClaims
}

type RealmAccess struct {
	Roles []string `json:"roles,omitempty"`
}

func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role) || slices.Contains(c.RealmAccess.Roles, role)
}

// AuthMiddleware validates an HMAC-signed bearer token and, when requiredRole
// is set, rejects tokens that do not carry it.
func AuthMiddleware(secret []byte, requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			RespondWithError(c, http.StatusUnauthorized, "Authorization header required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			RespondWithError(c, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (any, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
		if err != nil || !token.Valid {
			RespondWithError(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		if requiredRole != "" && !claims.HasRole(requiredRole) {
			RespondWithError(c, http.StatusForbidden, "Missing required role "+requiredRole)
			return
		}

		c.Set("subject", claims.Subject)
		c.Set("email", claims.Email)
		c.Next()
	}
}

// GetSubject returns the token subject stored by AuthMiddleware.
func GetSubject(c *gin.Context) (string, bool) {
	subject, ok := c.Get("subject")
	if !ok {
		return "", false
	}
	s, ok := subject.(string)
	return s, ok
}
