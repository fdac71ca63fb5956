package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/shoplytics/shoplytics/pkg/helpers"
	"github.com/shoplytics/shoplytics/pkg/response"
)

// CtxUsernameKey is the context key handlers read the authenticated
// username from.
const CtxUsernameKey = "username"

// Auth validates the access token and, when Redis is configured, requires an
// active session hash for the user. Without Redis it degrades to stateless
// JWT checking. It sets username and userEmail in the Gin context on success.
func Auth(rdb *redis.Client, jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie("access_token")
		if err != nil || token == "" {
			response.Error[any](c, http.StatusUnauthorized, "missing access token", nil)
			c.Abort()
			return
		}
		claims, err := jwt.ParseAccessToken(token)
		if err != nil {
			response.Error[any](c, http.StatusUnauthorized, "invalid access token", nil)
			c.Abort()
			return
		}

		email := ""
		if rdb != nil {
			key := "user:session:" + claims.Username
			data, err := rdb.HGetAll(c.Request.Context(), key).Result()
			if err != nil || len(data) == 0 {
				response.Error[any](c, http.StatusUnauthorized, "session not found", nil)
				c.Abort()
				return
			}
			email = data["email"]
		}

		c.Set(CtxUsernameKey, claims.Username)
		c.Set("userEmail", email)
		c.Next()
	}
}
