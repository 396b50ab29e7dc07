package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveProvider(t *testing.T) {
	before := testutil.ToFloat64(ProviderRequests.WithLabelValues("allanime", "search", OutcomeOK))
	ObserveProvider("allanime", "search", OutcomeOK, 120*time.Millisecond)
	after := testutil.ToFloat64(ProviderRequests.WithLabelValues("allanime", "search", OutcomeOK))
	assert.Equal(t, before+1, after)
}

func TestHandlerExposesCollectors(t *testing.T) {
	FallbackHops.WithLabelValues("sources").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "anistream_fallback_hops_total")
}
