package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveEvaluation(t *testing.T) {
	m := New()

	m.ObserveEvaluation("computed", 4)
	m.ObserveEvaluation("computed", 1)
	m.ObserveEvaluation("skipped", 0)

	if got := testutil.ToFloat64(m.streakEvals.WithLabelValues("computed")); got != 2 {
		t.Errorf("computed = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.streakEvals.WithLabelValues("skipped")); got != 1 {
		t.Errorf("skipped = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.streakWalkDays); got != 1 {
		t.Errorf("walk histogram series = %d, want 1", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveRequest("GET /api/streak", "GET", 200, 15*time.Millisecond)
	m.AuthRejected("invalid_token")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`studyplanner_http_requests_total{method="GET",route="GET /api/streak",status="200"} 1`,
		`studyplanner_auth_rejections_total{reason="invalid_token"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
