package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRequest(t *testing.T) {
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("height", "200"))
	ObserveRequest("height", 200, 20*time.Millisecond)
	ObserveRequest("height", 0, time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("height", "200")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("height", "error")), 1.0)
}

func TestWriteTextfile(t *testing.T) {
	Fallbacks.WithLabelValues("swisstopo").Inc()

	path := filepath.Join(t.TempDir(), "gpxelevation.prom")
	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `gpxelevation_enrich_fallbacks_total{from="swisstopo"}`))
}
