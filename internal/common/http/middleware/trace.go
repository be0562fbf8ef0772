package middleware

import (
	"context"
	"strings"

	"codejudge/pkg/utils/contextkey"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	traceIDHeader   = "X-Trace-Id"
	requestIDHeader = "X-Request-Id"

	maxInboundIDLength = 128
)

// TraceContextMiddleware stores the trace and request ids in the request context and echoes them
// as response headers. Inbound ids are kept when well-formed, otherwise a fresh uuid is used.
// The request id always identifies this hop; the trace id follows the call across services.
func TraceContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := inboundID(c.GetHeader(traceIDHeader))
		requestID := inboundID(c.GetHeader(requestIDHeader))

		ctx := context.WithValue(c.Request.Context(), contextkey.TraceID, traceID)
		ctx = context.WithValue(ctx, contextkey.RequestID, requestID)
		c.Request = c.Request.WithContext(ctx)

		h := c.Writer.Header()
		h.Set(traceIDHeader, traceID)
		h.Set(requestIDHeader, requestID)
		c.Next()
	}
}

func inboundID(raw string) string {
	id := strings.TrimSpace(raw)
	if id == "" || len(id) > maxInboundIDLength || strings.IndexFunc(id, notIDRune) >= 0 {
		return uuid.NewString()
	}
	return id
}

func notIDRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	case r == '-' || r == '_' || r == '.' || r == ':':
		return false
	}
	return true
}
