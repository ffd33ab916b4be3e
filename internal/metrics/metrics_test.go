package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	r.Resolved("PolyMesh", true)
	r.Failed("PolyMesh", "malformed")
	r.MeshSplit(2, true)
	r.Loaded(time.Second, map[string]int{"Xform": 1})
	r.Updated(time.Millisecond)
	assert.Nil(t, r.Registry())
}

func TestResolutionCounters(t *testing.T) {
	r := New()
	r.Resolved("PolyMesh", true)
	r.Resolved("PolyMesh", false)
	r.Resolved("Xform", true)
	r.Failed("PolyMesh", "malformed")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.Resolutions.WithLabelValues("PolyMesh")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.DirtyResolutions.WithLabelValues("PolyMesh")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.DirtyResolutions.WithLabelValues("Xform")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Errors.WithLabelValues("PolyMesh", "malformed")))
}

func TestMeshSplitCounters(t *testing.T) {
	r := New()
	r.MeshSplit(2, false)
	r.MeshSplit(3, true)

	assert.Equal(t, 5.0, testutil.ToFloat64(r.Splits))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.TopologyChanges))
}

func TestLoadedSetsNodeGauges(t *testing.T) {
	r := New()
	r.Loaded(20*time.Millisecond, map[string]int{"PolyMesh": 4, "Camera": 1})

	assert.Equal(t, 4.0, testutil.ToFloat64(r.Nodes.WithLabelValues("PolyMesh")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Nodes.WithLabelValues("Camera")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.LoadDuration))
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := New()
	r.Resolved("Points", true)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `abcstream_resolutions_total{kind="Points"} 1`), body)
}
