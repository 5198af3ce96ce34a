package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestDialogCreatedTracksActiveGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	done := r.DialogCreated()
	if v := gaugeValue(t, r.DialogsActive); v != 1 {
		t.Fatalf("DialogsActive = %v, want 1", v)
	}
	done()
	if v := gaugeValue(t, r.DialogsActive); v != 0 {
		t.Fatalf("DialogsActive after done = %v, want 0", v)
	}
}

func TestStateTransitionIncrementsVec(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.StateTransition("early", "confirmed")
	r.StateTransition("early", "confirmed")

	m := &dto.Metric{}
	if err := r.StateTransitions.WithLabelValues("early", "confirmed").Write(m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if m.Counter.GetValue() != 2 {
		t.Fatalf("counter = %v, want 2", m.Counter.GetValue())
	}
}

func TestMediaEncodeObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.MediaEncode("g711", func() {})

	m := &dto.Metric{}
	if err := r.MediaEncodeDuration.WithLabelValues("g711").(prometheus.Histogram).Write(m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if m.Histogram.GetSampleCount() != 1 {
		t.Fatalf("sample count = %d, want 1", m.Histogram.GetSampleCount())
	}
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := g.Write(m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return m.Gauge.GetValue()
}
