package lcmap

import (
	"github.com/prometheus/client_golang/prometheus"
)

// StatsSource is implemented by every Table.
type StatsSource interface {
	Stats() Stats
}

type collector struct {
	source       StatsSource
	capacity     *prometheus.Desc
	size         *prometheus.Desc
	emptyBuckets *prometheus.Desc
	maxChain     *prometheus.Desc
	malformed    *prometheus.Desc
}

// NewCollector returns a prometheus.Collector exporting the structure of
// a table as gauges. Each scrape calls Stats, which walks every chain;
// keep the scrape interval in line with the table size.
func NewCollector(namespace string, source StatsSource) prometheus.Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "lcmap", name), help, nil, nil)
	}
	return &collector{
		source:       source,
		capacity:     desc("capacity", "Fixed number of buckets."),
		size:         desc("entries", "Number of entries found in the chains."),
		emptyBuckets: desc("empty_buckets", "Number of buckets with an empty chain."),
		maxChain:     desc("max_chain_length", "Length of the longest chain."),
		malformed:    desc("malformed_chains", "Number of chains with a cycle or a duplicate key."),
	}
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.capacity
	ch <- c.size
	ch <- c.emptyBuckets
	ch <- c.maxChain
	ch <- c.malformed
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	s := c.source.Stats()
	ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(s.Capacity))
	ch <- prometheus.MustNewConstMetric(c.size, prometheus.GaugeValue, float64(s.Size))
	ch <- prometheus.MustNewConstMetric(c.emptyBuckets, prometheus.GaugeValue, float64(s.EmptyBuckets))
	ch <- prometheus.MustNewConstMetric(c.maxChain, prometheus.GaugeValue, float64(s.MaxChain))
	ch <- prometheus.MustNewConstMetric(c.malformed, prometheus.GaugeValue, float64(s.Malformed))
}
