package api_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carlink/market/internal/api"
	"carlink/market/internal/auth"
	"carlink/market/internal/config"
	"carlink/market/internal/utils"
)

func testConfig() *config.Config {
	return &config.Config{
		JwtSecret:               "router-secret",
		JwtTTL:                  time.Hour,
		CorsOrigins:             []string{"*"},
		RateLimitSoftBucketSize: 100,
		RateLimitSoftRefillRate: 10,
		RateLimitHardBucketSize: 200,
		RateLimitHardRefillRate: 20,
	}
}

func TestSetupRouter_Routes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	r, limiter := api.SetupRouter(cfg, api.Services{}, zap.NewNop())
	require.NotNil(t, limiter)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/v1/ping", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())

	// protected routes reject anonymous callers before reaching a service
	for _, path := range []string{"/v1/me", "/v1/chats", "/v1/favorites", "/v1/requests"} {
		w = httptest.NewRecorder()
		req, _ = http.NewRequest(http.MethodGet, path, nil)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	token, err := auth.GenerateJWT(utils.NewSixID(), false, cfg.JwtSecret, time.Hour)
	require.NoError(t, err)
	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodPost, "/v1/admin/inquiries/"+utils.NewSixID().String()+"/close", strings.NewReader(""))
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSetupRouter_RecoversFromPanics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	r, _ := api.SetupRouter(cfg, api.Services{}, zap.NewNop())

	// a nil service panics inside the handler
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/v1/listings/"+utils.NewSixID().String(), nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
