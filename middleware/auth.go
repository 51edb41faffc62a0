package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sukull/istikrar/config"
	"github.com/sukull/istikrar/identity"
	"github.com/sukull/istikrar/utils"
)

// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
const ContextUserIDKey = "user_id"

// AuthRequired ensures the request is authenticated via JWT and carries the
// user id both in the Gin context and in the request context.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			utils.Abort(ctx, http.StatusUnauthorized, 40101, "authorization header missing")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			utils.Abort(ctx, http.StatusUnauthorized, 40102, "invalid authorization header format")
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			utils.Abort(ctx, http.StatusUnauthorized, 40103, "empty bearer token")
			return
		}

		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			utils.Abort(ctx, http.StatusUnauthorized, 40105, "invalid token")
			return
		}

		SetUser(ctx, claims.UserID)
		ctx.Next()
	}
}

// SetUser binds userID to the request.
func SetUser(ctx *gin.Context, userID string) {
	ctx.Set(ContextUserIDKey, userID)
	ctx.Request = ctx.Request.WithContext(identity.WithUser(ctx.Request.Context(), userID))
}

// AdminRequired only lets configured admin users through. It must run after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userID := ctx.GetString(ContextUserIDKey)
		if userID == "" {
			utils.Abort(ctx, http.StatusUnauthorized, 40106, "unauthorized")
			return
		}
		if !config.Get().IsAdmin(userID) {
			utils.Abort(ctx, http.StatusForbidden, 40310, "admin only")
			return
		}
		ctx.Next()
	}
}
