package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterAccumulates(t *testing.T) {
	r := NewRegistry()

	r.IncrementCounter("deliveries", nil, "Deliveries")
	r.IncrementCounter("deliveries", nil, "Deliveries")
	r.AddToCounter("deliveries", 3, nil, "Deliveries")

	snapshot := r.Snapshot()
	counters := snapshot["counters"].(map[string]*Metric)
	require.Contains(t, counters, "deliveries")
	assert.Equal(t, float64(5), counters["deliveries"].Value)
}

func TestCountersWithDifferentLabelsAreSeparate(t *testing.T) {
	r := NewRegistry()

	r.IncrementCounter("deliveries", map[string]string{"status": "success"}, "")
	r.IncrementCounter("deliveries", map[string]string{"status": "transient_failure"}, "")
	r.IncrementCounter("deliveries", map[string]string{"status": "success"}, "")

	counters := r.Snapshot()["counters"].(map[string]*Metric)
	assert.Equal(t, float64(2), counters["deliveries_status:success"].Value)
	assert.Equal(t, float64(1), counters["deliveries_status:transient_failure"].Value)
}

func TestGaugeHoldsLatestValue(t *testing.T) {
	r := NewRegistry()

	r.SetGauge("reminders_stored", 3, nil, "")
	r.SetGauge("reminders_stored", 7, nil, "")

	gauges := r.Snapshot()["gauges"].(map[string]*Metric)
	require.Contains(t, gauges, "reminders_stored")
	assert.Equal(t, float64(7), gauges["reminders_stored"].Value)
}

func TestSnapshotIsACopy(t *testing.T) {
	r := NewRegistry()
	r.IncrementCounter("deliveries", nil, "")

	counters := r.Snapshot()["counters"].(map[string]*Metric)
	counters["deliveries"].Value = 99

	again := r.Snapshot()["counters"].(map[string]*Metric)
	assert.Equal(t, float64(1), again["deliveries"].Value)
}

func TestReset(t *testing.T) {
	r := NewRegistry()
	r.IncrementCounter("deliveries", nil, "")
	r.SetGauge("reminders_stored", 5, nil, "")

	r.Reset()

	snapshot := r.Snapshot()
	assert.Empty(t, snapshot["counters"].(map[string]*Metric))
	assert.Empty(t, snapshot["gauges"].(map[string]*Metric))
}

func TestGlobalRegistryHelpers(t *testing.T) {
	GetRegistry().Reset()
	t.Cleanup(func() { GetRegistry().Reset() })

	IncrementCounter("global_counter", nil, "")
	SetGauge("global_gauge", 4, nil, "")

	snapshot := GetRegistry().Snapshot()
	assert.Contains(t, snapshot["counters"].(map[string]*Metric), "global_counter")
	assert.Contains(t, snapshot["gauges"].(map[string]*Metric), "global_gauge")
}
