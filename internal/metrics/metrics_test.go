package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordCommand(t *testing.T) {
	m := New()
	m.RecordCommand("done", nil)
	m.RecordCommand("done", nil)
	m.RecordCommand("publish", errors.New("boom"))

	if got := testutil.ToFloat64(m.CommandsTotal.WithLabelValues("done", "success")); got != 2 {
		t.Errorf("done/success = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.CommandsTotal.WithLabelValues("publish", "error")); got != 1 {
		t.Errorf("publish/error = %v, want 1", got)
	}
}

func TestNew_IndependentRegistries(t *testing.T) {
	a := New()
	b := New()
	a.ConnectAttemptsTotal.Inc()

	if got := testutil.ToFloat64(b.ConnectAttemptsTotal); got != 0 {
		t.Errorf("second instance saw %v connect attempts, want 0", got)
	}
}

func TestHandler_ServesMetrics(t *testing.T) {
	m := New()
	m.EventsDropped.Inc()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), "standupbot_events_dropped_total 1") {
		t.Errorf("metrics output missing dropped counter:\n%s", body)
	}
}
