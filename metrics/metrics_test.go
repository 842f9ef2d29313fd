package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewWith(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWith(reg)

	m.FilesProcessedTotal.Inc()
	m.URLsProcessedTotal.Add(3)
	m.DetectionsTotal.WithLabelValues("SQL Injection").Inc()
	m.DetectionsTotal.WithLabelValues("SQL Injection").Inc()
	m.IngestErrorsTotal.Inc()

	if got := testutil.ToFloat64(m.FilesProcessedTotal); got != 1 {
		t.Errorf("files processed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.URLsProcessedTotal); got != 3 {
		t.Errorf("urls processed = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.DetectionsTotal.WithLabelValues("SQL Injection")); got != 2 {
		t.Errorf("detections = %v, want 2", got)
	}

	// Registering twice on the same registry must panic via promauto;
	// a fresh registry keeps test packages independent.
	defer func() {
		if recover() == nil {
			t.Error("expected duplicate registration panic")
		}
	}()
	NewWith(reg)
}
