// Package metrics instruments bus traffic with Prometheus.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/robotalks/cartbus/pkg/bus"
)

// NewRegistry creates a registry with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the registry.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// BusMetrics are the bus traffic counters.
type BusMetrics struct {
	Transactions *prometheus.CounterVec // labels: addr, result=ok|error
	Requests     *prometheus.CounterVec // labels: addr, result=ok|empty
	BytesRead    prometheus.Counter
	Timeouts     prometheus.Counter
}

// NewBusMetrics registers and returns the bus counters.
func NewBusMetrics(reg prometheus.Registerer) *BusMetrics {
	m := &BusMetrics{
		Transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cartbus_write_transactions_total",
			Help: "Write transactions by target address.",
		}, []string{"addr", "result"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cartbus_read_requests_total",
			Help: "Read requests by target address.",
		}, []string{"addr", "result"}),
		BytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cartbus_bytes_read_total",
			Help: "Bytes drained from replies.",
		}),
		Timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cartbus_timeouts_total",
			Help: "Timeout flags cleared after being observed.",
		}),
	}
	reg.MustRegister(m.Transactions, m.Requests, m.BytesRead, m.Timeouts)
	return m
}

// Transport wraps a bus.Transport counting its traffic.
type Transport struct {
	bus.Transport
	Metrics *BusMetrics

	txAddr byte
}

// Instrument wraps t.
func Instrument(t bus.Transport, m *BusMetrics) *Transport {
	return &Transport{Transport: t, Metrics: m}
}

// BeginTransaction implements bus.Transport.
func (t *Transport) BeginTransaction(addr byte) {
	t.txAddr = addr
	t.Transport.BeginTransaction(addr)
}

// EndTransaction implements bus.Transport.
func (t *Transport) EndTransaction() error {
	err := t.Transport.EndTransaction()
	result := "ok"
	if err != nil {
		result = "error"
	}
	t.Metrics.Transactions.WithLabelValues(addrLabel(t.txAddr), result).Inc()
	return err
}

// RequestBytes implements bus.Transport.
func (t *Transport) RequestBytes(addr byte, count int) int {
	n := t.Transport.RequestBytes(addr, count)
	result := "ok"
	if n == 0 {
		result = "empty"
	}
	t.Metrics.Requests.WithLabelValues(addrLabel(addr), result).Inc()
	return n
}

// ReadByte implements bus.Transport.
func (t *Transport) ReadByte() (byte, error) {
	b, err := t.Transport.ReadByte()
	if err == nil {
		t.Metrics.BytesRead.Inc()
	}
	return b, err
}

// ResetTimeoutFlag implements bus.Transport.
func (t *Transport) ResetTimeoutFlag() {
	if t.Transport.TimeoutFlag() {
		t.Metrics.Timeouts.Inc()
	}
	t.Transport.ResetTimeoutFlag()
}

func addrLabel(addr byte) string {
	return "0x" + strconv.FormatUint(uint64(addr), 16)
}
