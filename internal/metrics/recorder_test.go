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

func TestRecorderCountsResolutions(t *testing.T) {
	r := NewRecorder(nil)

	r.ObserveResolution(ResultFound)
	r.ObserveResolution(ResultFound)
	r.ObserveResolution(ResultAmbiguous)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.resolutions.WithLabelValues(ResultFound)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.resolutions.WithLabelValues(ResultAmbiguous)))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.resolutions.WithLabelValues(ResultNotFound)))
}

func TestRecorderHandlerExposesMetrics(t *testing.T) {
	r := NewRecorder(nil)
	r.IncBlockLink("simple")
	r.ObserveRender("page", 15*time.Millisecond)

	w := httptest.NewRecorder()
	r.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `cms_block_links_total{type="simple"} 1`)
	assert.Contains(t, w.Body.String(), "cms_render_duration_seconds_count")
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.ObserveResolution(ResultFound)
	r.ObserveRender("block", time.Second)
	r.IncBlockLink("simple")
}
