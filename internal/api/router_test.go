package api_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weddingplanners/api/internal/api"
	"weddingplanners/api/internal/config"
	"weddingplanners/api/internal/db"
)

func testConfig() *config.Config {
	return &config.Config{
		CORSAllowedOrigins:         []string{"*"},
		PlannersDefaultLimit:       20,
		PlannersMalformedPolicy:    config.MalformedAbort,
		DemoMode:                   true,
		RateLimitInquiryBurst:      5,
		RateLimitInquiryRefillRate: 1,
	}
}

func setupOfflineRouter(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return api.SetupRouter(cfg, db.Unavailable(nil), nil, prometheus.NewRegistry(), zerolog.Nop())
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req, _ = http.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, path, nil)
	}
	req.RemoteAddr = "10.0.0.1:5555"
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_Root(t *testing.T) {
	r := setupOfflineRouter(testConfig())
	w := serve(r, "GET", "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Wedding Planner API is running"}`, w.Body.String())
}

func TestRouter_PlannersFallBackWithoutStore(t *testing.T) {
	r := setupOfflineRouter(testConfig())
	w := serve(r, "GET", "/api/planners", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "fallback", w.Header().Get("X-Planner-Source"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var body []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body, 2)
	assert.Equal(t, "We Me Good Weddings", body[0]["name"])
	assert.Equal(t, "EverAfter Collective", body[1]["name"])
	assert.Nil(t, body[1]["instagram"])
}

func TestRouter_PlannersBadLimit(t *testing.T) {
	r := setupOfflineRouter(testConfig())
	assert.Equal(t, http.StatusBadRequest, serve(r, "GET", "/api/planners?limit=zero", "").Code)
}

func TestRouter_InquiryDegradesWithoutStore(t *testing.T) {
	r := setupOfflineRouter(testConfig())
	w := serve(r, "POST", "/api/inquiries", `{"name":"Jordan","email":"jordan@example.com"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","id":"demo-inquiry","note":"Stored in-memory for preview"}`, w.Body.String())
}

func TestRouter_InquiryUnavailableOutsideDemoMode(t *testing.T) {
	cfg := testConfig()
	cfg.DemoMode = false
	r := setupOfflineRouter(cfg)
	w := serve(r, "POST", "/api/inquiries", `{"name":"Jordan","email":"jordan@example.com"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRouter_InquiryInvalidEmail(t *testing.T) {
	r := setupOfflineRouter(testConfig())
	w := serve(r, "POST", "/api/inquiries", `{"name":"Jordan","email":"jordan"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "email", body["field"])
}

func TestRouter_InquiryRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitInquiryBurst = 1
	r := setupOfflineRouter(cfg)

	body := `{"name":"Jordan","email":"jordan@example.com"}`
	assert.Equal(t, http.StatusOK, serve(r, "POST", "/api/inquiries", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, "POST", "/api/inquiries", body).Code)
	// Listings are not throttled.
	assert.Equal(t, http.StatusOK, serve(r, "GET", "/api/planners", "").Code)
}

func postInquiryVia(r http.Handler, forwardedFor string) int {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/inquiries", strings.NewReader(`{"name":"Jordan","email":"jordan@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", forwardedFor)
	req.RemoteAddr = "10.0.0.1:5555"
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRouter_InquiryRateLimitIgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitInquiryBurst = 1
	r := setupOfflineRouter(cfg)

	codes := make([]int, 0, 5)
	for i := 0; i < 5; i++ {
		codes = append(codes, postInquiryVia(r, fmt.Sprintf("203.0.113.%d", i)))
	}
	assert.Equal(t, []int{200, 429, 429, 429, 429}, codes)
}

func TestRouter_InquiryRateLimitUsesForwardedForFromTrustedProxy(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitInquiryBurst = 1
	cfg.TrustedProxies = []string{"10.0.0.0/8"}
	r := setupOfflineRouter(cfg)

	assert.Equal(t, http.StatusOK, postInquiryVia(r, "203.0.113.1"))
	assert.Equal(t, http.StatusOK, postInquiryVia(r, "203.0.113.2"))
	assert.Equal(t, http.StatusTooManyRequests, postInquiryVia(r, "203.0.113.1"))
}

func TestRouter_Diagnostics(t *testing.T) {
	r := setupOfflineRouter(testConfig())
	w := serve(r, "GET", "/test", "")

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Not Connected", body["connection_status"])
	assert.Equal(t, "❌ Not Set", body["database_url"])
}

func TestRouter_Metrics(t *testing.T) {
	r := setupOfflineRouter(testConfig())
	serve(r, "GET", "/api/planners", "")

	w := serve(r, "GET", "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `planners_served_total{source="fallback"} 2`)
	assert.Contains(t, w.Body.String(), `http_requests_total{method="GET",route="/api/planners",status="200"} 1`)
}

func TestServiceRouter_Shutdown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	shutdownChan := make(chan struct{}, 1)
	r := api.SetupServiceRouter(nil, shutdownChan, zerolog.Nop())

	w := serve(r, "POST", "/api", `{"method":"shutdown"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	select {
	case <-shutdownChan:
	default:
		t.Fatal("shutdown was not signaled")
	}

	// A second request does not block on the full channel.
	shutdownChan <- struct{}{}
	assert.Equal(t, http.StatusOK, serve(r, "POST", "/api", `{"method":"shutdown"}`).Code)
}

func TestServiceRouter_Errors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := api.SetupServiceRouter(nil, make(chan struct{}, 1), zerolog.Nop())

	assert.Equal(t, http.StatusBadRequest, serve(r, "POST", "/api", `not json`).Code)
	assert.Equal(t, http.StatusNotFound, serve(r, "POST", "/api", `{"method":"reboot"}`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, "POST", "/api", `{"method":"getTestEmail","arguments":[]}`).Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(r, "POST", "/api", `{"method":"getTestEmail","arguments":["a@example.com"]}`).Code)
}
