package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(KeyframesRejected.WithLabelValues("TEST"))
	KeyframesRejected.WithLabelValues("TEST").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(KeyframesRejected.WithLabelValues("TEST")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	FramesEmitted.Add(0)
	Timer("test").ObserveDuration()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "animdiff_frames_emitted_total")
	assert.Contains(t, string(body), `animdiff_step_duration_seconds_count{op="test"}`)
}
