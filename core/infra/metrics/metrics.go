package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Observer defines counters and timers for the request-context core.
type Observer interface {
	IncBroadcastSent(event string)
	IncBroadcastFailed(event string)
	IncQueryRetried(connection string)
	ObserveOp(name string, durationSeconds float64)
}

// Noop implements Observer without emitting anything.
type Noop struct{}

func (Noop) IncBroadcastSent(string)   {}
func (Noop) IncBroadcastFailed(string) {}
func (Noop) IncQueryRetried(string)    {}
func (Noop) ObserveOp(string, float64) {}

// Prom implements Observer backed by Prometheus collectors.
type Prom struct {
	broadcastSent   *prometheus.CounterVec
	broadcastFailed *prometheus.CounterVec
	queryRetried    *prometheus.CounterVec
	opDuration      *prometheus.HistogramVec
	once            sync.Once
}

func NewProm(namespace string) *Prom {
	p := &Prom{
		broadcastSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_packets_sent_total",
			Help:      "Broadcast packets sent by event",
		}, []string{"event"}),
		broadcastFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_packets_failed_total",
			Help:      "Broadcast packets that failed transport by event",
		}, []string{"event"}),
		queryRetried: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_query_retries_total",
			Help:      "Transient storage failures that triggered a retry by connection",
		}, []string{"connection"}),
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "op_duration_seconds",
			Help:      "Named operation duration seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	p.register()
	return p
}

func (p *Prom) register() {
	p.once.Do(func() {
		prometheus.MustRegister(p.broadcastSent, p.broadcastFailed, p.queryRetried, p.opDuration)
	})
}

func (p *Prom) IncBroadcastSent(event string) {
	p.broadcastSent.WithLabelValues(event).Inc()
}

func (p *Prom) IncBroadcastFailed(event string) {
	p.broadcastFailed.WithLabelValues(event).Inc()
}

func (p *Prom) IncQueryRetried(connection string) {
	p.queryRetried.WithLabelValues(connection).Inc()
}

func (p *Prom) ObserveOp(name string, durationSeconds float64) {
	p.opDuration.WithLabelValues(name).Observe(durationSeconds)
}

// StartTimer begins a named operation timer and returns the stop function.
// The duration is reported through obs when stop runs; stop is idempotent.
func StartTimer(obs Observer, name string) func() {
	if obs == nil {
		return func() {}
	}
	start := time.Now()
	var once sync.Once
	return func() {
		once.Do(func() {
			obs.ObserveOp(name, time.Since(start).Seconds())
		})
	}
}

// Handler returns an HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
