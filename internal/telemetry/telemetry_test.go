package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordFetch(t *testing.T) {
	before := testutil.ToFloat64(FetchTotal.WithLabelValues("database", ResultError))
	RecordFetch("database", ResultError)
	RecordFetch("database", ResultError)
	after := testutil.ToFloat64(FetchTotal.WithLabelValues("database", ResultError))

	assert.Equal(t, before+2, after)
}

func TestRecordCache(t *testing.T) {
	hits := testutil.ToFloat64(CacheLookups.WithLabelValues("hit"))
	misses := testutil.ToFloat64(CacheLookups.WithLabelValues("miss"))

	RecordCache(true)
	RecordCache(false)
	RecordCache(false)

	assert.Equal(t, hits+1, testutil.ToFloat64(CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, misses+2, testutil.ToFloat64(CacheLookups.WithLabelValues("miss")))
}

func TestRecordStepFailureAndEvent(t *testing.T) {
	step := testutil.ToFloat64(StepFailures.WithLabelValues("network"))
	RecordStepFailure("network")
	assert.Equal(t, step+1, testutil.ToFloat64(StepFailures.WithLabelValues("network")))

	ev := testutil.ToFloat64(RealtimeEvents.WithLabelValues("metrics-update"))
	RecordEvent("metrics-update")
	assert.Equal(t, ev+1, testutil.ToFloat64(RealtimeEvents.WithLabelValues("metrics-update")))
}

func TestRegisterBuildInfo(t *testing.T) {
	RegisterBuildInfo("1.2.3")
	RegisterBuildInfo("9.9.9")

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	var found bool
	for _, mf := range families {
		if mf.GetName() != "nselfadmin_build_info" {
			continue
		}
		found = true
		require.Len(t, mf.GetMetric(), 1)
		labels := map[string]string{}
		for _, lp := range mf.GetMetric()[0].GetLabel() {
			labels[lp.GetName()] = lp.GetValue()
		}
		assert.Equal(t, "1.2.3", labels["version"])
	}
	assert.True(t, found)
}
