package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "maestro"

// Metrics holds the orchestration metric instruments.
type Metrics struct {
	RunsStarted   metric.Int64Counter
	RunsCompleted metric.Int64Counter
	RunsFailed    metric.Int64Counter
	StepsExecuted metric.Int64Counter
	RunDuration   metric.Float64Histogram
	PlanSteps     metric.Int64Histogram
}

// NewMetrics creates all instruments against the global meter provider.
// Safe to call before Setup: instruments then record into the no-op
// provider until a real one is installed.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)

	var firstErr error
	keep := func(err error) {
		if firstErr == nil && err != nil {
			firstErr = err
		}
	}
	counter := func(name, desc, unit string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
		keep(err)
		return c
	}

	m := &Metrics{
		RunsStarted:   counter("maestro.runs.started", "Orchestration runs started", "{run}"),
		RunsCompleted: counter("maestro.runs.completed", "Orchestration runs completed", "{run}"),
		RunsFailed:    counter("maestro.runs.failed", "Orchestration runs failed", "{run}"),
		StepsExecuted: counter("maestro.steps.executed", "Plan steps executed", "{step}"),
	}

	duration, err := meter.Float64Histogram("maestro.run.duration_seconds",
		metric.WithDescription("Orchestration run duration"), metric.WithUnit("s"))
	keep(err)
	m.RunDuration = duration

	steps, err := meter.Int64Histogram("maestro.plan.steps",
		metric.WithDescription("Steps per built plan"), metric.WithUnit("{step}"))
	keep(err)
	m.PlanSteps = steps

	if firstErr != nil {
		return nil, firstErr
	}
	return m, nil
}
