package store

import "testing"

func TestRecordAndAverageMetric(t *testing.T) {
	s := testStore(t)

	for _, v := range []float64{1.0, 2.0, 3.0} {
		if err := s.RecordMetric("tier3_latency_ms", v); err != nil {
			t.Fatalf("RecordMetric(%v) error: %v", v, err)
		}
	}

	avg, err := s.AverageMetric("tier3_latency_ms")
	if err != nil {
		t.Fatalf("AverageMetric() error: %v", err)
	}
	if avg != 2.0 {
		t.Errorf("AverageMetric() = %v, want 2.0", avg)
	}
}

func TestAverageMetricNoSamples(t *testing.T) {
	s := testStore(t)

	avg, err := s.AverageMetric("never_recorded")
	if err != nil {
		t.Fatalf("AverageMetric() error: %v", err)
	}
	if avg != 0 {
		t.Errorf("AverageMetric() = %v, want 0", avg)
	}
}

func TestRecentMetricsNewestFirst(t *testing.T) {
	s := testStore(t)

	for _, v := range []float64{1.0, 2.0, 3.0} {
		if err := s.RecordMetric("ensemble_agreement", v); err != nil {
			t.Fatalf("RecordMetric(%v) error: %v", v, err)
		}
	}

	samples, err := s.RecentMetrics("ensemble_agreement", 2)
	if err != nil {
		t.Fatalf("RecentMetrics() error: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("RecentMetrics() returned %d samples, want 2", len(samples))
	}
	if samples[0].Value != 3.0 || samples[1].Value != 2.0 {
		t.Errorf("RecentMetrics() = %+v, want newest-first [3.0, 2.0]", samples)
	}
}
