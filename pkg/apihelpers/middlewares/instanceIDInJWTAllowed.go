package middlewares

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	jwthandling "github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/jwt-handling"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/utils"
)

func IsInstanceIDInJWTAllowed(allowedInstanceIDs []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		parsedToken, ok := c.Get("validatedToken")
		if !ok {
			slog.Warn("validatedToken not found in context")
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "validatedToken not found in context"})
			return
		}

		instanceID := parsedToken.(*jwthandling.CollectionUserClaims).InstanceID
		if !utils.ContainsString(allowedInstanceIDs, instanceID) {
			slog.Warn("instanceID not allowed", slog.String("instanceID", instanceID))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "instanceID not allowed"})
			return
		}
	}
}
