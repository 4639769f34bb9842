// Package metrics exposes pool activity as prometheus collectors fed from
// the event bus.
package metrics

import (
	"github.com/l1jgo/recycler/internal/core/event"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "recycler"

// Metrics holds the recycler collectors. Build it against a dedicated
// registry in tests to avoid clashing with the default one.
type Metrics struct {
	Pools     prometheus.Gauge
	PoolSize  *prometheus.GaugeVec
	Requests  *prometheus.CounterVec
	Releases  prometheus.Counter
	Access    *prometheus.CounterVec
	Instances *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Pools: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pools",
			Help:      "Number of registered pools",
		}),
		PoolSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_size",
			Help:      "Spare instances held per composition",
		}, []string{"composition"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Completed tree requests by build path",
		}, []string{"path"}),
		Releases: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "releases_total",
			Help:      "Completed tree releases",
		}),
		Access: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pool_access_total",
			Help:      "Pool accesses by result",
		}, []string{"result"}),
		Instances: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instances_total",
			Help:      "Retired and reused node instances by outcome",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.Pools, m.PoolSize, m.Requests, m.Releases, m.Access, m.Instances)
	return m
}

// Attach subscribes the collectors to the pool events on bus.
func (m *Metrics) Attach(bus *event.Bus) {
	event.Subscribe(bus, func(e event.Requested) {
		if e.Fallback {
			m.Requests.WithLabelValues("instantiate").Inc()
			return
		}
		m.Requests.WithLabelValues("pooled").Inc()
	})
	event.Subscribe(bus, func(event.Released) { m.Releases.Inc() })
	event.Subscribe(bus, func(e event.PoolAccessed) {
		if e.Hit {
			m.Access.WithLabelValues("hit").Inc()
			return
		}
		m.Access.WithLabelValues("miss").Inc()
	})
	event.Subscribe(bus, func(e event.Pooled) {
		if !e.Kept {
			m.Instances.WithLabelValues("destroyed").Inc()
			return
		}
		m.Instances.WithLabelValues("pooled").Inc()
		m.PoolSize.WithLabelValues(e.Handle.String()).Set(float64(e.Size.Count))
	})
	event.Subscribe(bus, func(e event.Unpooled) {
		m.Instances.WithLabelValues("unpooled").Inc()
		m.PoolSize.WithLabelValues(e.Handle.String()).Set(float64(e.Size.Count))
	})
	event.Subscribe(bus, func(e event.PoolCreated) {
		m.Pools.Inc()
		m.PoolSize.WithLabelValues(e.Handle.String()).Set(float64(e.Size.Count))
	})
	event.Subscribe(bus, func(e event.PoolUpdated) {
		m.PoolSize.WithLabelValues(e.Handle.String()).Set(float64(e.Size.Count))
	})
	event.Subscribe(bus, func(e event.PoolDeleted) {
		m.Pools.Dec()
		m.PoolSize.DeleteLabelValues(e.Handle.String())
	})
}
