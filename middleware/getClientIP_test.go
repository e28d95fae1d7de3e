package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func requestContext(t *testing.T) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c
}

func TestGetClientIPPrefersForwardedFor(t *testing.T) {
	c := requestContext(t)
	c.Request.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	c.Request.Header.Set("X-Real-IP", "198.51.100.7")

	assert.Equal(t, "203.0.113.5", getClientIP(c))
}

func TestGetClientIPFallbacks(t *testing.T) {
	c := requestContext(t)
	c.Request.Header.Set("X-Real-IP", "198.51.100.7")
	assert.Equal(t, "198.51.100.7", getClientIP(c))

	c.Request.Header.Del("X-Real-IP")
	c.Request.RemoteAddr = "192.0.2.4:51234"
	assert.Equal(t, "192.0.2.4", getClientIP(c))
}
