package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Sink = (*PrometheusSink)(nil)
var _ Sink = (*NoopSink)(nil)

func TestPrometheusSink_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewPrometheusSink(reg, nil)

	s.RunCompleted(RunOK, 2*time.Second)
	s.RunCompleted(RunOK, time.Second)
	s.RunCompleted(RunFetchError, 10*time.Millisecond)
	s.GroupProcessed(GroupChanged)
	s.GroupProcessed(GroupUnchanged)
	s.GroupProcessed(GroupUnchanged)
	s.NotificationSent(SendOK)
	s.NotificationSent(SendBlocked)

	assert.Equal(t, 2.0, testutil.ToFloat64(s.runsTotal.WithLabelValues(RunOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.runsTotal.WithLabelValues(RunFetchError)))
	assert.Equal(t, 2.0, testutil.ToFloat64(s.groupsTotal.WithLabelValues(GroupUnchanged)))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.messagesTotal.WithLabelValues(SendBlocked)))

	n, err := testutil.GatherAndCount(reg, "svitlo_pipeline_run_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPrometheusSink_DoubleRegistrationDoesNotPanic(t *testing.T) {
	reg := prometheus.NewRegistry()
	_ = NewPrometheusSink(reg, nil)

	assert.NotPanics(t, func() {
		s := NewPrometheusSink(reg, nil)
		s.RunCompleted(RunSkipped, 0)
	})
}

func TestNoopSink_AllMethods(t *testing.T) {
	s := NewNoopSink()
	s.RunCompleted(RunOK, time.Second)
	s.GroupProcessed(GroupMalformed)
	s.NotificationSent(SendTransport)
}
