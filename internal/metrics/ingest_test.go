package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterIngestMetrics_Idempotent(t *testing.T) {
	RegisterIngestMetrics()
	RegisterIngestMetrics()

	before := testutil.ToFloat64(RecordsTotal.WithLabelValues("inserted"))
	RecordsTotal.WithLabelValues("inserted").Inc()
	if got := testutil.ToFloat64(RecordsTotal.WithLabelValues("inserted")); got != before+1 {
		t.Errorf("records_total{inserted} = %f, want %f", got, before+1)
	}
}

func TestWriteDuration_Observes(t *testing.T) {
	WriteDuration.Observe(0.002)
	if n := testutil.CollectAndCount(WriteDuration); n != 1 {
		t.Errorf("expected 1 histogram series, got %d", n)
	}
}
