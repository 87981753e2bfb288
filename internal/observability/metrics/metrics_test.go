package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

func TestRecordSession(t *testing.T) {
	m := newTestMetrics()

	m.RecordSessionCreated()
	m.RecordSessionCreated()
	m.RecordSessionClosed()

	if got := testutil.ToFloat64(m.SessionsTotal); got != 2 {
		t.Errorf("expected 2 sessions total, got %v", got)
	}
	if got := testutil.ToFloat64(m.SessionsActive); got != 1 {
		t.Errorf("expected 1 active session, got %v", got)
	}
}

func TestRecordFragment(t *testing.T) {
	m := newTestMetrics()

	m.RecordFragment(true)
	m.RecordFragment(false)
	m.RecordFragment(false)
	m.RecordStaleFragment()

	if got := testutil.ToFloat64(m.FragmentsTotal.WithLabelValues("final")); got != 1 {
		t.Errorf("expected 1 final fragment, got %v", got)
	}
	if got := testutil.ToFloat64(m.FragmentsTotal.WithLabelValues("interim")); got != 2 {
		t.Errorf("expected 2 interim fragments, got %v", got)
	}
	if got := testutil.ToFloat64(m.FragmentsStale); got != 1 {
		t.Errorf("expected 1 stale fragment, got %v", got)
	}
}

func TestRecordProcess(t *testing.T) {
	m := newTestMetrics()

	m.RecordProcess(0.001, "labeled-runs")
	m.RecordProcess(0.001, "")
	m.RecordSuppression(3, 1)

	if got := testutil.ToFloat64(m.OrdersExtracted.WithLabelValues("labeled-runs")); got != 1 {
		t.Errorf("expected 1 extracted order, got %v", got)
	}
	if got := testutil.CollectAndCount(m.OrdersExtracted); got != 1 {
		t.Errorf("empty strategy must not create a series, got %d", got)
	}
	if got := testutil.ToFloat64(m.WordsSuppressed); got != 3 {
		t.Errorf("expected 3 suppressed words, got %v", got)
	}
}

func TestRecordPublish(t *testing.T) {
	m := newTestMetrics()

	m.RecordPublish("kafka", "orders", "order", nil, 0.01)
	m.RecordPublish("kafka", "orders", "order", errors.New("boom"), 0.01)

	if got := testutil.ToFloat64(m.PublishTotal.WithLabelValues("kafka", "orders", "order")); got != 2 {
		t.Errorf("expected 2 publishes, got %v", got)
	}
	if got := testutil.ToFloat64(m.PublishErrors.WithLabelValues("kafka", "orders", "order")); got != 1 {
		t.Errorf("expected 1 publish error, got %v", got)
	}
}

func TestNewMetrics_SeparateRegistries(t *testing.T) {
	// Registering twice on fresh registries must not panic.
	a := newTestMetrics()
	b := newTestMetrics()
	a.RecordSourceRestart()

	if testutil.ToFloat64(b.SourceRestarts) != 0 {
		t.Error("metrics instances must be independent")
	}
}
