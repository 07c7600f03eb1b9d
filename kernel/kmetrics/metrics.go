// Package kmetrics exposes kernel-internal counters through
// github.com/prometheus/client_golang, the same metrics library the
// teacher pulls in as a dependency without ever wiring it to anything. The
// kernel increments these counters as it schedules processes and routes
// messages; Snapshot renders them in the Prometheus text exposition format
// via github.com/prometheus/common/expfmt, which is what backs a
// KernelDebugMetricsRequest response.
package kmetrics

import (
	"bytes"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Metrics holds every counter the kernel updates during scheduling.
type Metrics struct {
	registry *prometheus.Registry

	ProcessesStarted  prometheus.Counter
	ProcessesFinished prometheus.Counter
	ProcessesErrored  prometheus.Counter
	MessagesEmitted   prometheus.Counter
	MessagesAnswered  prometheus.Counter
	InterfacesOwned   prometheus.Gauge
}

// New creates a Metrics with every counter registered under the
// "redshirt_kernel_" namespace.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		ProcessesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "redshirt_kernel_processes_started_total",
			Help: "Number of processes started via Execute.",
		}),
		ProcessesFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "redshirt_kernel_processes_finished_total",
			Help: "Number of processes that finished without error.",
		}),
		ProcessesErrored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "redshirt_kernel_processes_errored_total",
			Help: "Number of processes that finished with a trap or abort.",
		}),
		MessagesEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "redshirt_kernel_messages_emitted_total",
			Help: "Number of interface messages emitted.",
		}),
		MessagesAnswered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "redshirt_kernel_messages_answered_total",
			Help: "Number of interface messages answered.",
		}),
		InterfacesOwned: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "redshirt_kernel_interfaces_registered",
			Help: "Number of interfaces currently registered to a handler.",
		}),
	}
	reg.MustRegister(m.ProcessesStarted, m.ProcessesFinished, m.ProcessesErrored,
		m.MessagesEmitted, m.MessagesAnswered, m.InterfacesOwned)
	return m
}

// Snapshot renders the current state of every metric in the Prometheus
// text exposition format — the payload a KernelDebugMetricsRequest
// responds with.
func (m *Metrics) Snapshot() ([]byte, error) {
	mfs, err := m.registry.Gather()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.FmtText)
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
