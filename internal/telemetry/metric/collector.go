package metric

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Keyspace is the view of the store the collector reads.
type Keyspace interface {
	Len() int
	ShardLens() []int
}

// KeyspaceCollector reports keyspace size at scrape time.
type KeyspaceCollector struct {
	keyspace  Keyspace
	keys      *prometheus.Desc
	shardKeys *prometheus.Desc
}

// NewKeyspaceCollector creates a collector reading from ks.
func NewKeyspaceCollector(ks Keyspace) *KeyspaceCollector {
	return &KeyspaceCollector{
		keyspace: ks,
		keys: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "keyspace", "keys"),
			"Number of stored keys, including expired keys not yet accessed.",
			nil, nil,
		),
		shardKeys: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "keyspace", "shard_keys"),
			"Number of stored keys per shard.",
			[]string{"shard"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *KeyspaceCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.keys
	ch <- c.shardKeys
}

// Collect implements prometheus.Collector.
func (c *KeyspaceCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.keys, prometheus.GaugeValue, float64(c.keyspace.Len()))
	for i, n := range c.keyspace.ShardLens() {
		ch <- prometheus.MustNewConstMetric(c.shardKeys, prometheus.GaugeValue, float64(n), strconv.Itoa(i))
	}
}
