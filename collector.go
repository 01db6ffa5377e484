package strata

import (
	"github.com/prometheus/client_golang/prometheus"

	"goflare.io/strata/internal/models"
)

// StatusReporter is anything that can report a cache Status, typically a *Manager.
type StatusReporter interface {
	Status() models.Status
}

type collector struct {
	reporter StatusReporter

	hits         *prometheus.Desc
	misses       *prometheus.Desc
	requests     *prometheus.Desc
	responseTime *prometheus.Desc
	hitRate      *prometheus.Desc
	l1Entries    *prometheus.Desc
	l1Max        *prometheus.Desc
	l2Available  *prometheus.Desc
}

// NewCollector exports the reporter's Status as Prometheus metrics. Values are
// read on every scrape.
func NewCollector(r StatusReporter, namespace string) prometheus.Collector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "cache", name), help, labels, nil)
	}
	return &collector{
		reporter:     r,
		hits:         desc("hits_total", "The total number of cache hits per tier", "tier"),
		misses:       desc("misses_total", "The total number of cache misses per tier", "tier"),
		requests:     desc("requests_total", "The total number of get requests"),
		responseTime: desc("response_seconds_avg", "The average get response time in seconds"),
		hitRate:      desc("hit_rate_percent", "Hits on either tier as a percentage of get requests"),
		l1Entries:    desc("l1_entries", "The number of entries held in the local tier"),
		l1Max:        desc("l1_max_entries", "The capacity of the local tier"),
		l2Available:  desc("l2_available", "Whether the remote tier is usable (1) or not (0)"),
	}
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.requests
	ch <- c.responseTime
	ch <- c.hitRate
	ch <- c.l1Entries
	ch <- c.l1Max
	ch <- c.l2Available
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	s := c.reporter.Status()
	m := s.Metrics

	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(m.L1Hits), "l1")
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(m.L2Hits), "l2")
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(m.L1Misses), "l1")
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(m.L2Misses), "l2")
	ch <- prometheus.MustNewConstMetric(c.requests, prometheus.CounterValue, float64(m.TotalRequests))
	ch <- prometheus.MustNewConstMetric(c.responseTime, prometheus.GaugeValue, m.AverageResponseTime.Seconds())
	ch <- prometheus.MustNewConstMetric(c.hitRate, prometheus.GaugeValue, m.HitRate)
	ch <- prometheus.MustNewConstMetric(c.l1Entries, prometheus.GaugeValue, float64(s.L1Size))
	ch <- prometheus.MustNewConstMetric(c.l1Max, prometheus.GaugeValue, float64(s.L1MaxSize))

	available := 0.0
	if s.L2Available {
		available = 1
	}
	ch <- prometheus.MustNewConstMetric(c.l2Available, prometheus.GaugeValue, available)
}
