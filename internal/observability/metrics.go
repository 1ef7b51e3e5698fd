// Package observability exposes discovery progress as Prometheus metrics.
package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"routescope/internal/discovery"
)

// DiscoveryCollector bundles the discovery metrics and implements
// discovery.Recorder so a Coordinator can drive them directly.
type DiscoveryCollector struct {
	gatherer prometheus.Gatherer

	Routers  *prometheus.CounterVec
	Hosts    prometheus.Counter
	Links    prometheus.Counter
	Duration prometheus.Histogram

	TopologyRouters prometheus.Gauge
	TopologyHosts   prometheus.Gauge
	TopologyLinks   prometheus.Gauge
}

var _ discovery.Recorder = (*DiscoveryCollector)(nil)

// NewDiscoveryCollector registers discovery metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewDiscoveryCollector(reg prometheus.Registerer) (*DiscoveryCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	routers, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "routescope_routers_total",
		Help: "Router discoveries by outcome: added, duplicate or failed.",
	}, []string{"outcome"}), "routescope_routers_total")
	if err != nil {
		return nil, err
	}
	hosts, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "routescope_hosts_total",
		Help: "PC hosts added to a topology.",
	}), "routescope_hosts_total")
	if err != nil {
		return nil, err
	}
	links, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "routescope_links_total",
		Help: "Links added to a topology.",
	}), "routescope_links_total")
	if err != nil {
		return nil, err
	}
	duration, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "routescope_discovery_duration_seconds",
		Help:    "Wall time of one complete discovery run.",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}), "routescope_discovery_duration_seconds")
	if err != nil {
		return nil, err
	}

	gauges := make([]prometheus.Gauge, 0, 3)
	for _, kind := range []string{"routers", "hosts", "links"} {
		name := "routescope_topology_" + kind
		g, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: name,
			Help: fmt.Sprintf("Number of %s in the last completed topology.", kind),
		}), name)
		if err != nil {
			return nil, err
		}
		gauges = append(gauges, g)
	}

	return &DiscoveryCollector{
		gatherer:        gatherer,
		Routers:         routers,
		Hosts:           hosts,
		Links:           links,
		Duration:        duration,
		TopologyRouters: gauges[0],
		TopologyHosts:   gauges[1],
		TopologyLinks:   gauges[2],
	}, nil
}

func (c *DiscoveryCollector) RouterDiscovered(outcome discovery.Outcome) {
	if c == nil {
		return
	}
	c.Routers.WithLabelValues(string(outcome)).Inc()
}

func (c *DiscoveryCollector) HostAdded() {
	if c == nil {
		return
	}
	c.Hosts.Inc()
}

func (c *DiscoveryCollector) LinkAdded() {
	if c == nil {
		return
	}
	c.Links.Inc()
}

// DiscoveryCompleted records the run time and the size of the finished topology
func (c *DiscoveryCollector) DiscoveryCompleted(elapsed time.Duration, routers, hosts, links int) {
	if c == nil {
		return
	}
	c.Duration.Observe(elapsed.Seconds())
	c.TopologyRouters.Set(float64(routers))
	c.TopologyHosts.Set(float64(hosts))
	c.TopologyLinks.Set(float64(links))
}

// Handler exposes a ready-to-use /metrics handler.
func (c *DiscoveryCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// register adds collector to reg, returning the existing one when an
// identical collector was registered before.
func register[T prometheus.Collector](reg prometheus.Registerer, collector T, name string) (T, error) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			return collector, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return collector, err
	}
	return collector, nil
}
