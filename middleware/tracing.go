package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TracingMiddleware instruments every request with an OpenTelemetry
// span via otelgin.
func TracingMiddleware() gin.HandlerFunc {
	return otelgin.Middleware("maternal-care-platform")
}

// EnrichTrace attaches user and request attributes to the active span.
func EnrichTrace() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())

		if requestID := GetRequestID(c); requestID != "" {
			span.SetAttributes(attribute.String("request.id", requestID))
		}
		span.SetAttributes(attribute.String("http.client_ip", c.ClientIP()))

		c.Next()

		// The user identity is only in the context once the route
		// group's auth middleware has run.
		if userID := GetUserID(c); userID != "" {
			span.SetAttributes(attribute.String("user.email", userID))
		}
		span.SetAttributes(attribute.Int("http.response.status_code", c.Writer.Status()))
	}
}
