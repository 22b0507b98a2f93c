package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestEnrichTraceRecordsUserSetByAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(provider)
	defer provider.Shutdown(context.Background())

	router := gin.New()
	router.Use(TracingMiddleware(), EnrichTrace())
	router.GET("/me", func(c *gin.Context) {
		// Route groups attach their auth middleware after the global
		// chain, so the identity lands in the context mid-request.
		c.Set("user_id", "mother@example.com")
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	require.Equal(t, http.StatusOK, w.Code)

	spans := recorder.Ended()
	require.NotEmpty(t, spans)

	var email string
	var status int64
	for _, span := range spans {
		for _, attr := range span.Attributes() {
			switch string(attr.Key) {
			case "user.email":
				email = attr.Value.AsString()
			case "http.response.status_code":
				status = attr.Value.AsInt64()
			}
		}
	}

	assert.Equal(t, "mother@example.com", email)
	assert.Equal(t, int64(http.StatusOK), status)
}
