package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordCatalogRequest(t *testing.T) {
	okBefore := testutil.ToFloat64(CatalogRequests.WithLabelValues("test", "ok"))
	errBefore := testutil.ToFloat64(CatalogRequests.WithLabelValues("test", "error"))

	RecordCatalogRequest("test", time.Now().Add(-50*time.Millisecond), nil)
	RecordCatalogRequest("test", time.Now(), errors.New("boom"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(CatalogRequests.WithLabelValues("test", "ok")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(CatalogRequests.WithLabelValues("test", "error")))
}

func TestRecordLibraryWrite(t *testing.T) {
	okBefore := testutil.ToFloat64(LibraryWrites.WithLabelValues("ok"))
	errBefore := testutil.ToFloat64(LibraryWrites.WithLabelValues("error"))

	RecordLibraryWrite(nil)
	RecordLibraryWrite(errors.New("disk full"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(LibraryWrites.WithLabelValues("ok")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(LibraryWrites.WithLabelValues("error")))
}

func TestGauges_Exist(t *testing.T) {
	LibraryEntries.Set(7)
	assert.Equal(t, float64(7), testutil.ToFloat64(LibraryEntries))
}

func TestHandler_ExposesCollectors(t *testing.T) {
	SafetyDropped.WithLabelValues("tag").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "gameshelf_safety_dropped_total")
}
