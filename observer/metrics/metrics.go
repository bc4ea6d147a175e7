// Package metrics exports execution lifecycle events as Prometheus metrics.
package metrics

import (
	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/warriorguo/asl/types"
)

var (
	_ types.ExecutionObserver = &Observer{}
)

type Observer struct {
	started  *prometheus.CounterVec
	stopped  *prometheus.CounterVec
	states   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New registers the collectors on reg, prometheus.DefaultRegisterer when nil.
func New(reg prometheus.Registerer) (*Observer, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	o := &Observer{
		started: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "asl_executions_started_total",
				Help: "Total number of started executions",
			},
			[]string{"state_machine"},
		),
		stopped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "asl_executions_stopped_total",
				Help: "Total number of stopped executions by status and error",
			},
			[]string{"state_machine", "status", "error"},
		),
		states: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "asl_state_visits_total",
				Help: "Total number of state attempts by outcome",
			},
			[]string{"state_machine", "state", "success"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "asl_execution_duration_seconds",
				Help:    "Duration of executions",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"state_machine", "status"},
		),
	}
	for _, c := range []prometheus.Collector{o.started, o.stopped, o.states, o.duration} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Annotatef(err, "register collector")
		}
	}
	return o, nil
}

func (o *Observer) ExecutionStarted(evt *types.ExecutionEvent) {
	o.started.WithLabelValues(evt.StateMachine).Inc()
}

func (o *Observer) ExecutionStopped(evt *types.ExecutionEvent) {
	if evt.Result == nil {
		return
	}
	status := types.Failed.String()
	if evt.Result.IsSuccess {
		status = types.Succeeded.String()
	}
	o.stopped.WithLabelValues(evt.StateMachine, status, evt.Result.ErrorName).Inc()

	for _, entry := range evt.Result.History {
		success := "false"
		if entry.Success {
			success = "true"
		}
		o.states.WithLabelValues(evt.StateMachine, entry.StepName, success).Inc()
	}
	o.duration.WithLabelValues(evt.StateMachine, status).Observe(evt.Result.StopTime.Sub(evt.Result.StartTime).Seconds())
}
