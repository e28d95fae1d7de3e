package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"usadba/config"
	"usadba/services/shelter"
	"usadba/session"
)

func TestHealthzHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, "/healthz", nil)

	store := session.NewMemoryStore(time.Minute, 10)
	shelterClient := shelter.NewClient(config.Config{ShelterTimeout: 1})
	handler := NewHealthHandler(store, shelterClient)

	handler.HealthzHandler(c)

	assert.Equal(t, http.StatusOK, recorder.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["sessionStore"])
	assert.Equal(t, false, body["shelterConfigured"])

	// The snapshot carries named Redis connections, empty before the first tick.
	snapshot, ok := body["dependencySnapshot"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, snapshot, "redis")
	assert.Contains(t, snapshot, "mongo")
}
