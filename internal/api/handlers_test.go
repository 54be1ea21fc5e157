package api

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/fitcheck/backend/internal/database"
	"github.com/pageza/fitcheck/backend/internal/testhelpers"
)

type healthBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func healthRouter(h *HealthHandler) *gin.Engine {
	router := gin.New()
	h.RegisterRoutes(router)
	return router
}

func TestHealthWithoutRedis(t *testing.T) {
	router := healthRouter(NewHealthHandler(testhelpers.SetupSQLite(t), nil))

	w := doJSON(router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var body healthBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "ok", body.Checks["database"])
	assert.Equal(t, "disabled", body.Checks["redis"])
}

func TestHealthDatabaseDown(t *testing.T) {
	db := testhelpers.SetupSQLite(t)
	require.NoError(t, database.Close(db))

	w := doJSON(healthRouter(NewHealthHandler(db, nil)), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body healthBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "unhealthy", body.Status)
	assert.NotEqual(t, "ok", body.Checks["database"])
}

func TestHealthRedisDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	w := doJSON(healthRouter(NewHealthHandler(testhelpers.SetupSQLite(t), client)), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body healthBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Checks["database"])
	assert.NotEqual(t, "ok", body.Checks["redis"])
}

func TestHealthWithRedis(t *testing.T) {
	client := testhelpers.SetupRedis(t)

	w := doJSON(healthRouter(NewHealthHandler(testhelpers.SetupSQLite(t), client)), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var body healthBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Checks["redis"])
}
