package debug

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/km-arc/go-provide/framework/container"
)

var kinds = []container.Kind{
	container.KindAlias,
	container.KindClass,
	container.KindFactory,
	container.KindValue,
}

// Collector exports registry gauges for a container. Every scrape takes a
// fresh Entries snapshot; nothing is built.
type Collector struct {
	c      *container.Container
	tokens *prometheus.Desc
	cached *prometheus.Desc
}

// NewCollector creates a Collector over c.
func NewCollector(c *container.Container) *Collector {
	return &Collector{
		c: c,
		tokens: prometheus.NewDesc("container_tokens",
			"Number of registered tokens by provider kind.",
			[]string{"kind"}, nil),
		cached: prometheus.NewDesc("container_cached_services",
			"Number of tokens holding a built or provided value.",
			nil, nil),
	}
}

func (col *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- col.tokens
	ch <- col.cached
}

func (col *Collector) Collect(ch chan<- prometheus.Metric) {
	counts := make(map[container.Kind]int, len(kinds))
	cached := 0
	for _, e := range col.c.Entries() {
		counts[e.Kind]++
		if e.Cached {
			cached++
		}
	}
	for _, k := range kinds {
		ch <- prometheus.MustNewConstMetric(col.tokens, prometheus.GaugeValue, float64(counts[k]), string(k))
	}
	ch <- prometheus.MustNewConstMetric(col.cached, prometheus.GaugeValue, float64(cached))
}
