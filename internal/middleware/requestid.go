// requestid.go tags every request with a correlation identifier. IDs are
// ULIDs from internal/ids rather than UUIDs so that sorting log lines by
// request id is sorting them by arrival time.
package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/konshedo/planivo/internal/ids"
)

const (
	// RequestIDHeader carries the correlation id on requests and responses.
	RequestIDHeader = "X-Request-ID"

	// RequestIDKey is the gin.Context key under which the id is stored so
	// handlers and the logger can read it without touching headers.
	RequestIDKey = "request_id"
)

// RequestIDMiddleware assigns each request a correlation id. An inbound
// X-Request-ID (from a load balancer or the frontend) is reused unchanged;
// otherwise a fresh ULID is generated. The id is stored in the context under
// RequestIDKey and echoed back in the response header so clients can quote it
// when reporting a failed request.
//
// Register early in the chain so every downstream log line carries the id.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = ids.New()
		}

		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)

		c.Next()
	}
}
