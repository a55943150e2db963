package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingMiddleware returns the otelgin middleware followed by one that tags
// the server span with the request id, route ids and handler errors.
// Install both: router.Use(TracingMiddleware(name)...).
func TracingMiddleware(serviceName string) []gin.HandlerFunc {
	return []gin.HandlerFunc{otelgin.Middleware(serviceName), spanAttributes}
}

// spanAttributes must run inside otelgin so the span is still open
func spanAttributes(c *gin.Context) {
	span := trace.SpanFromContext(c.Request.Context())
	if !span.IsRecording() {
		c.Next()
		return
	}

	if requestID := c.GetString(RequestIDKey); requestID != "" {
		span.SetAttributes(attribute.String("http.request_id", requestID))
	}
	if id := c.Param("id"); id != "" {
		span.SetAttributes(attribute.String("hypechain.route.id", id))
	}
	if wallet := c.Param("wallet"); wallet != "" {
		span.SetAttributes(attribute.String("hypechain.route.wallet", wallet))
	}
	if key := c.GetHeader("Idempotency-Key"); key != "" {
		span.SetAttributes(attribute.String("hypechain.idempotency_key", key))
	}

	c.Next()

	for _, ginErr := range c.Errors {
		if ginErr.Err != nil {
			span.RecordError(ginErr.Err)
			span.SetStatus(codes.Error, ginErr.Error())
		}
	}
}
