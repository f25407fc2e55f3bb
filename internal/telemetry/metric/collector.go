package metric

import "github.com/prometheus/client_golang/prometheus"

// SessionStats is a point-in-time view of a running session.
type SessionStats struct {
	Tick      uint32
	Channels  int
	Entities  int
	Smoothing int
}

// Collector reads session gauges at scrape time instead of updating them
// every tick.
type Collector struct {
	source func() SessionStats

	tick      *prometheus.Desc
	channels  *prometheus.Desc
	entities  *prometheus.Desc
	smoothing *prometheus.Desc
}

// NewCollector creates a collector that calls source on every scrape.
// role is attached as a constant label.
func NewCollector(role string, source func() SessionStats) *Collector {
	labels := prometheus.Labels{"role": role}
	return &Collector{
		source: source,
		tick: prometheus.NewDesc(namespace+"_session_tick",
			"Current simulation tick", nil, labels),
		channels: prometheus.NewDesc(namespace+"_session_channels",
			"Peer channels currently bound", nil, labels),
		entities: prometheus.NewDesc(namespace+"_session_entities",
			"Entities in the local simulation", nil, labels),
		smoothing: prometheus.NewDesc(namespace+"_session_smoothing_active",
			"Entities with an interpolation in flight", nil, labels),
	}
}

// Register adds the collector to r. A nil registry is ignored.
func (c *Collector) Register(r *Registry) error {
	if r == nil {
		return nil
	}
	return r.registry.Register(c)
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.tick
	ch <- c.channels
	ch <- c.entities
	ch <- c.smoothing
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.source()
	ch <- prometheus.MustNewConstMetric(c.tick, prometheus.GaugeValue, float64(s.Tick))
	ch <- prometheus.MustNewConstMetric(c.channels, prometheus.GaugeValue, float64(s.Channels))
	ch <- prometheus.MustNewConstMetric(c.entities, prometheus.GaugeValue, float64(s.Entities))
	ch <- prometheus.MustNewConstMetric(c.smoothing, prometheus.GaugeValue, float64(s.Smoothing))
}
