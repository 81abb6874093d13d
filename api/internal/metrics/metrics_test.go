package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesObservations(t *testing.T) {
	ObserveGeneration("5512", OutcomeOK, 3*time.Second, 2)
	ObserveGeneration("2345", "MALFORMED_JSON", time.Second, 1)
	ObserveExport("doc")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	out := string(body)
	assert.Contains(t, out, `giaoan_generations_total{outcome="OK",template="5512"}`)
	assert.Contains(t, out, `giaoan_generations_total{outcome="MALFORMED_JSON",template="2345"}`)
	assert.Contains(t, out, `giaoan_generation_duration_seconds_count{template="5512"}`)
	assert.NotContains(t, out, `giaoan_generation_duration_seconds_count{template="2345"}`)
	assert.Contains(t, out, `giaoan_exports_total{format="doc"}`)
	assert.Contains(t, out, "giaoan_images_per_request_bucket")
}
