package library

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes lending activity to Prometheus.
type Metrics struct {
	operations *prometheus.CounterVec
	borrowed   prometheus.Gauge
	overdue    prometheus.Gauge
}

// NewMetrics creates the lending collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "library_lending_operations_total",
			Help: "Borrow and return requests by outcome.",
		}, []string{"op", "outcome"}),
		borrowed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "library_items_borrowed",
			Help: "Items currently out on loan.",
		}),
		overdue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "library_records_overdue",
			Help: "Open loans past their due date at the last sweep.",
		}),
	}
	for _, c := range []prometheus.Collector{m.operations, m.borrowed, m.overdue} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// outcomeOf maps a lending result to a label value.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrItemNotFound):
		return "item_not_found"
	case errors.Is(err, ErrItemNotAvailable):
		return "item_not_available"
	case errors.Is(err, ErrNoActiveRecord):
		return "no_active_record"
	default:
		return "error"
	}
}

func (m *Metrics) observe(op string, err error, borrowed int) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, outcomeOf(err)).Inc()
	m.borrowed.Set(float64(borrowed))
}

func (m *Metrics) setOverdue(n int) {
	if m == nil {
		return
	}
	m.overdue.Set(float64(n))
}

func (m *Metrics) observeBorrowed(borrowed int) {
	if m == nil {
		return
	}
	m.borrowed.Set(float64(borrowed))
}
