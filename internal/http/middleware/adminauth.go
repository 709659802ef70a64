package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const adminSubjectKey = "admin.sub"

// AdminAuth requires an HS256 bearer token signed with secret and carrying
// an expiry. An empty secret disables the admin API entirely.
func AdminAuth(secret string) gin.HandlerFunc {
	key := []byte(strings.TrimSpace(secret))
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(5*time.Second),
	)

	return func(c *gin.Context) {
		if len(key) == 0 {
			AbortError(c, http.StatusUnauthorized, "unauthorized", "admin API is disabled")
			return
		}
		parts := strings.Fields(c.GetHeader("Authorization"))
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.Header("WWW-Authenticate", `Bearer realm="admin"`)
			AbortError(c, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}

		var claims jwt.RegisteredClaims
		_, err := parser.ParseWithClaims(parts[1], &claims, func(*jwt.Token) (interface{}, error) {
			return key, nil
		})
		if err != nil {
			LoggerFrom(c).Warn().Err(err).Msg("admin token rejected")
			c.Header("WWW-Authenticate", `Bearer realm="admin", error="invalid_token"`)
			AbortError(c, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}
		c.Set(adminSubjectKey, claims.Subject)
		c.Next()
	}
}

// AdminSubject returns the authenticated admin's subject claim.
func AdminSubject(c *gin.Context) string {
	return c.GetString(adminSubjectKey)
}
