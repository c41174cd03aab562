package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-ddd-auth-scaffold/internal/application"
	"github.com/oksasatya/go-ddd-auth-scaffold/pkg/helpers"
	"github.com/oksasatya/go-ddd-auth-scaffold/pkg/response"
)

// Gin context keys set by Auth.
const (
	CtxUserID    = "userID"
	CtxUserName  = "userName"
	CtxUserEmail = "userEmail"
	CtxUserRoles = "userRoles"
)

// Auth validates the access token and requires a live session in Redis whose
// sid matches the token. Session fields are copied into the Gin context.
func Auth(rdb *redis.Client, jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(helpers.AccessCookie)
		if err != nil || token == "" {
			token = bearer(c.GetHeader("Authorization"))
		}
		if token == "" {
			response.Fail(c, http.StatusUnauthorized, "missing access token", nil)
			return
		}
		claims, err := jwt.ParseAccessToken(token)
		if err != nil {
			response.Fail(c, http.StatusUnauthorized, "invalid access token", err.Error())
			return
		}

		data, err := rdb.HGetAll(c.Request.Context(), application.SessionKey(claims.UserID)).Result()
		if err != nil || len(data) == 0 {
			response.Fail(c, http.StatusUnauthorized, "session not found", nil)
			return
		}
		if sid := data["sid"]; sid != "" && sid != claims.SessionID {
			response.Fail(c, http.StatusUnauthorized, "session expired", nil)
			return
		}

		c.Set(CtxUserID, data["user_id"])
		c.Set(CtxUserName, data["name"])
		c.Set(CtxUserEmail, data["email"])
		c.Set(CtxUserRoles, splitRoles(data["roles"]))
		c.Next()
	}
}

// RequireRoles lets the request through when the session holds any of roles.
// Must run after Auth.
func RequireRoles(roles ...string) gin.HandlerFunc {
	want := make([]string, 0, len(roles))
	for _, r := range roles {
		want = append(want, application.Normalize(r))
	}
	return func(c *gin.Context) {
		for _, have := range Roles(c) {
			if slices.Contains(want, application.Normalize(have)) {
				c.Next()
				return
			}
		}
		response.Fail(c, http.StatusForbidden, "forbidden", nil)
	}
}

// Roles returns the roles Auth stored for the request.
func Roles(c *gin.Context) []string {
	v, ok := c.Get(CtxUserRoles)
	if !ok {
		return nil
	}
	roles, _ := v.([]string)
	return roles
}

func splitRoles(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func bearer(h string) string {
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}
