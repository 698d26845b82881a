package journal

import (
	"context"

	"github.com/battlesnakeio/chainsnake/game"
	"github.com/prometheus/client_golang/prometheus"
)

// InstrumentStore wraps all store methods to instrument the underlying calls.
func InstrumentStore(s Store) Store { return &metrics{s} }

var (
	storeCalls = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chainsnake",
			Subsystem: "journal",
			Name:      "calls",
			Help:      "Calls processed by the journal store.",
		},
		[]string{"method"},
	)
)

func instrument(method string) func() {
	t := prometheus.NewTimer(storeCalls.WithLabelValues(method))
	return func() { t.ObserveDuration() }
}

func init() {
	prometheus.MustRegister(storeCalls)
}

type metrics struct{ s Store }

func (m *metrics) CreateRun(c context.Context, r *Run) error {
	defer instrument("CreateRun")()
	return m.s.CreateRun(c, r)
}

func (m *metrics) SetRunStatus(c context.Context, id string, status RunStatus) error {
	defer instrument("SetRunStatus")()
	return m.s.SetRunStatus(c, id, status)
}

func (m *metrics) GetRun(c context.Context, id string) (*Run, error) {
	defer instrument("GetRun")()
	return m.s.GetRun(c, id)
}

func (m *metrics) AppendFrames(c context.Context, id string, frames ...*game.Frame) error {
	defer instrument("AppendFrames")()
	return m.s.AppendFrames(c, id, frames...)
}

func (m *metrics) ListFrames(c context.Context, id string, limit, offset int) ([]*game.Frame, error) {
	defer instrument("ListFrames")()
	return m.s.ListFrames(c, id, limit, offset)
}
