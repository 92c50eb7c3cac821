package internal

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lrd/internal/controllers"
	"lrd/internal/engine"
	"lrd/internal/services"
	"lrd/internal/testutil"
)

func newRouteTestController() *controllers.ApiController {
	conf := testutil.TestConfig()
	logger := &testutil.MockLogger{}
	catalog := services.NewCatalogStore()
	registry := services.NewListenerRegistry()
	rate := engine.NewRateCalculator(conf.Engine.BaseRate, catalog, registry)
	service := services.NewRewardService(conf, logger, testutil.NewMockMetrics(), rate, nil, testutil.NewMockColdStorage(), registry)
	return controllers.NewApiController(logger, service, testutil.NewMockCache(), catalog, testutil.NewMockMetrics())
}

func TestInitRoutes_RegistersAllRoutes(t *testing.T) {
	router := InitRoutes(newRouteTestController(), testutil.TestConfig())
	routes := router.GetRoutes()

	require.Len(t, routes, 15)

	urls := make([]string, len(routes))
	for i, r := range routes {
		urls[i] = r.Url
	}

	assert.Contains(t, urls, "/telemetry")
	assert.Contains(t, urls, "/claim")
	assert.Contains(t, urls, "/claim/answer")
	assert.Contains(t, urls, "/claim/status")
	assert.Contains(t, urls, "/subscription")
	assert.Contains(t, urls, "/stake")
	assert.Contains(t, urls, "/destination")
	assert.Contains(t, urls, "/verify")
	assert.Contains(t, urls, "/catalog")
	assert.Contains(t, urls, "/earnings")
	assert.Contains(t, urls, "/trust")
	assert.Contains(t, urls, "/aggregate")
	assert.Contains(t, urls, "/proof")
	assert.Contains(t, urls, "/export")
	assert.Contains(t, urls, "/import")
}

func TestInitRoutes_MethodEnforcement(t *testing.T) {
	router := InitRoutes(newRouteTestController(), testutil.TestConfig())

	mux := http.NewServeMux()
	for _, r := range router.GetRoutes() {
		mux.Handle(r.Url, r.Handler)
	}

	// GET /earnings with POST should fail
	req := httptest.NewRequest(http.MethodPost, "/earnings?u=u1", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	// POST /telemetry with GET should fail
	req = httptest.NewRequest(http.MethodGet, "/telemetry", nil)
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
