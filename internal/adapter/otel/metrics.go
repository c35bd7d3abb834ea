package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "reviewdesk"

// Metrics holds all reviewdesk metric instruments.
type Metrics struct {
	EventsCreated       metric.Int64Counter
	DecisionsRecorded   metric.Int64Counter
	TransitionsRejected metric.Int64Counter
	WriteConflicts      metric.Int64Counter
	ReviewersReassigned metric.Int64Counter
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.EventsCreated, err = meter.Int64Counter("reviewdesk.events.created",
		metric.WithDescription("Number of game events created"))
	if err != nil {
		return nil, err
	}

	m.DecisionsRecorded, err = meter.Int64Counter("reviewdesk.decisions.recorded",
		metric.WithDescription("Number of review decisions committed"))
	if err != nil {
		return nil, err
	}

	m.TransitionsRejected, err = meter.Int64Counter("reviewdesk.transitions.rejected",
		metric.WithDescription("Number of decisions rejected by the state machine"))
	if err != nil {
		return nil, err
	}

	m.WriteConflicts, err = meter.Int64Counter("reviewdesk.write.conflicts",
		metric.WithDescription("Number of guarded writes lost to a concurrent update"))
	if err != nil {
		return nil, err
	}

	m.ReviewersReassigned, err = meter.Int64Counter("reviewdesk.reviewers.reassigned",
		metric.WithDescription("Number of reviewer reassignments committed"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
