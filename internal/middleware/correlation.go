package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eaglebank/accounts/internal/models"
	"github.com/eaglebank/accounts/internal/observability"
)

const correlationKey = "correlationId"

// CorrelationID reads the eazybank-correlation-id header into the request
// context and echoes it on the response. With generate set, a request that
// arrives without one is given a fresh UUID and the header is added to the
// request before it is forwarded.
func CorrelationID(generate bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(models.CorrelationIDHeader)
		if id == "" && generate {
			id = uuid.NewString()
			c.Request.Header.Set(models.CorrelationIDHeader, id)
		}
		if id != "" {
			c.Set(correlationKey, id)
			c.Header(models.CorrelationIDHeader, id)
			observability.TagCorrelationID(c.Request.Context(), id)
		}
		c.Next()
	}
}

func GetCorrelationID(c *gin.Context) string {
	return c.GetString(correlationKey)
}
