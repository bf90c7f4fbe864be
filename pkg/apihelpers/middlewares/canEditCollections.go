package middlewares

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	jwthandling "github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/jwt-handling"
)

// CanEditCollections guards the schema editing and export endpoints.
func CanEditCollections() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenValue, ok := c.Get("validatedToken")
		if !ok {
			slog.Warn("CanEditCollections: validatedToken not found in context")
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "validatedToken not found in context"})
			return
		}
		parsedToken := tokenValue.(*jwthandling.CollectionUserClaims)

		if !parsedToken.CanEditCollections {
			slog.Warn("CanEditCollections Middleware: user without edit rights tried to access editor endpoint", slog.String("instanceID", parsedToken.InstanceID), slog.String("userID", parsedToken.Subject))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized access to editor endpoint"})
			return
		}
	}
}
