package middleware

import (
	"net/http"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/logger"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

const bodyTooLargeMessage = "Request body exceeds maximum allowed size"

// BodyLimit rejects bodies larger than maxBytes. A declared Content-Length is
// refused up front; chunked bodies fail while binding (see
// HandleValidationError) with the same 413 envelope.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, bodyTooLarge(c))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func bodyTooLarge(c *gin.Context) dto.Response {
	return dto.NewErrorResponseWithRequestID(dto.ErrCodeBodyTooLarge, bodyTooLargeMessage, logger.GetRequestID(c.Request.Context()))
}
