package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, m *Metrics, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, metric := range mf.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue next
				}
			}
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

func TestObserve_CountsByLabel(t *testing.T) {
	t.Parallel()
	m := New()

	m.ObserveRequest(http.MethodGet, "/forms/{id}", 200, 10*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "/forms/{id}", 200, 20*time.Millisecond)
	m.ObservePush("created", "skipped", "created")

	require.Equal(t, 2.0, counterValue(t, m, "formsync_http_requests_total",
		map[string]string{"method": "GET", "route": "/forms/{id}", "code": "200"}))
	require.Equal(t, 2.0, counterValue(t, m, "formsync_sync_push_items_total", map[string]string{"status": "created"}))
	require.Equal(t, 1.0, counterValue(t, m, "formsync_sync_push_items_total", map[string]string{"status": "skipped"}))
}

func TestHandler_Exposition(t *testing.T) {
	t.Parallel()
	m := New()
	m.WSSubscribers.Set(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "formsync_ws_subscribers 3")
}
