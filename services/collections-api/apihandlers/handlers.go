package apihandlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func HealthCheckHandle(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type HttpEndpoints struct {
	tokenSignKey       string
	allowedInstanceIDs []string
}

func NewHTTPHandler(
	tokenSignKey string,
	allowedInstanceIDs []string,
) *HttpEndpoints {
	return &HttpEndpoints{
		tokenSignKey:       tokenSignKey,
		allowedInstanceIDs: allowedInstanceIDs,
	}
}
