package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/warriorguo/asl/types"
)

func TestObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	o, err := New(reg)
	assert.Nil(t, err)

	start := time.Now()
	o.ExecutionStarted(&types.ExecutionEvent{StateMachine: "orders"})
	o.ExecutionStarted(&types.ExecutionEvent{StateMachine: "orders"})
	assert.Equal(t, 2.0, testutil.ToFloat64(o.started.WithLabelValues("orders")))

	o.ExecutionStopped(&types.ExecutionEvent{
		StateMachine: "orders",
		Result: &types.ExecutionResult{
			IsSuccess: true,
			StartTime: start,
			StopTime:  start.Add(20 * time.Millisecond),
			History: []types.HistoryEntry{
				{StepName: "Reserve", Success: true},
				{StepName: "Ship", Success: true},
			},
		},
	})
	o.ExecutionStopped(&types.ExecutionEvent{
		StateMachine: "orders",
		Result: &types.ExecutionResult{
			ErrorName: "OrderRejected",
			StartTime: start,
			StopTime:  start.Add(time.Millisecond),
			History: []types.HistoryEntry{
				{StepName: "Reserve", Success: false, Error: "OrderRejected"},
			},
		},
	})
	// started events carry no result
	o.ExecutionStopped(&types.ExecutionEvent{StateMachine: "orders"})

	assert.Equal(t, 1.0, testutil.ToFloat64(o.stopped.WithLabelValues("orders", "SUCCEEDED", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.stopped.WithLabelValues("orders", "FAILED", "OrderRejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.states.WithLabelValues("orders", "Reserve", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.states.WithLabelValues("orders", "Reserve", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.states.WithLabelValues("orders", "Ship", "true")))
	assert.Equal(t, 2, testutil.CollectAndCount(o.duration))
}

func TestNew_AlreadyRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	assert.Nil(t, err)

	_, err = New(reg)
	assert.NotNil(t, err)
}
