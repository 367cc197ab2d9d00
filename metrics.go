package lcmap

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Recorder is notified about the outcome of table operations. It is
// called after the operation released its locks. Implementations must be
// safe for concurrent use.
type Recorder interface {
	// Insert records an Insert; replaced reports an overwrite.
	Insert(replaced bool)
	// Remove records a Remove; found reports that an entry was removed.
	Remove(found bool)
	// Lookup records a Lookup or View; found reports a hit.
	Lookup(found bool)
}

// NoopRecorder is a Recorder that does nothing. It is the default.
type NoopRecorder struct{}

// Compile-time interface check.
var _ Recorder = NoopRecorder{}

func (NoopRecorder) Insert(bool) {}
func (NoopRecorder) Remove(bool) {}
func (NoopRecorder) Lookup(bool) {}

type otelRecorder struct {
	inserts metric.Int64Counter
	removes metric.Int64Counter
	lookups metric.Int64Counter

	inserted, replaced metric.AddOption
	removed, missing   metric.AddOption
	hit, miss          metric.AddOption
}

// NewOtelRecorder returns a Recorder counting operations with
// OpenTelemetry instruments created from meter:
//
//	lcmap.inserts{result="inserted"|"replaced"}
//	lcmap.removes{result="removed"|"missing"}
//	lcmap.lookups{result="hit"|"miss"}
func NewOtelRecorder(meter metric.Meter) (Recorder, error) {
	inserts, err := meter.Int64Counter("lcmap.inserts",
		metric.WithDescription("Number of Insert calls"),
	)
	if err != nil {
		return nil, err
	}
	removes, err := meter.Int64Counter("lcmap.removes",
		metric.WithDescription("Number of Remove calls"),
	)
	if err != nil {
		return nil, err
	}
	lookups, err := meter.Int64Counter("lcmap.lookups",
		metric.WithDescription("Number of Lookup and View calls"),
	)
	if err != nil {
		return nil, err
	}
	return &otelRecorder{
		inserts:  inserts,
		removes:  removes,
		lookups:  lookups,
		inserted: resultOption("inserted"),
		replaced: resultOption("replaced"),
		removed:  resultOption("removed"),
		missing:  resultOption("missing"),
		hit:      resultOption("hit"),
		miss:     resultOption("miss"),
	}, nil
}

func resultOption(result string) metric.AddOption {
	return metric.WithAttributeSet(attribute.NewSet(attribute.String("result", result)))
}

func (r *otelRecorder) Insert(replaced bool) {
	if replaced {
		r.inserts.Add(context.Background(), 1, r.replaced)
		return
	}
	r.inserts.Add(context.Background(), 1, r.inserted)
}

func (r *otelRecorder) Remove(found bool) {
	if found {
		r.removes.Add(context.Background(), 1, r.removed)
		return
	}
	r.removes.Add(context.Background(), 1, r.missing)
}

func (r *otelRecorder) Lookup(found bool) {
	if found {
		r.lookups.Add(context.Background(), 1, r.hit)
		return
	}
	r.lookups.Add(context.Background(), 1, r.miss)
}
