package pool

import "github.com/prometheus/client_golang/prometheus"

// Collector adapts a Pool's Stats snapshot into Prometheus metrics. It is
// additive instrumentation over Stats; registering and scraping it never
// mutates pool state.
type Collector struct {
	pool *Pool

	idle                           *prometheus.Desc
	active                         *prometheus.Desc
	requestCount                   *prometheus.Desc
	hadToWaitCount                 *prometheus.Desc
	badConnectionCount             *prometheus.Desc
	claimedOverdueConnectionCount  *prometheus.Desc
	accumulatedRequestSeconds      *prometheus.Desc
	accumulatedWaitSeconds         *prometheus.Desc
	accumulatedCheckoutSeconds     *prometheus.Desc
	accumulatedOverdueCheckoutSecs *prometheus.Desc
}

// NewCollector builds a Collector for p. Register it with a
// prometheus.Registry the way the embedding application registers any
// other collector.
func NewCollector(p *Pool, namespace, subsystem string) *Collector {
	labels := []string{}
	return &Collector{
		pool: p,
		idle: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "idle_connections"),
			"Number of idle connections currently retained by the pool.", labels, nil),
		active: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "active_connections"),
			"Number of connections currently checked out.", labels, nil),
		requestCount: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "requests_total"),
			"Total successful Acquire calls.", labels, nil),
		hadToWaitCount: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "waited_requests_total"),
			"Total Acquire calls that had to wait for a connection.", labels, nil),
		badConnectionCount: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "bad_connections_total"),
			"Total candidates discarded for failing the liveness probe or invalidity.", labels, nil),
		claimedOverdueConnectionCount: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "overdue_reclaims_total"),
			"Total active connections reclaimed for exceeding the checkout deadline.", labels, nil),
		accumulatedRequestSeconds: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "request_seconds_total"),
			"Accumulated wall time spent inside Acquire.", labels, nil),
		accumulatedWaitSeconds: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "wait_seconds_total"),
			"Accumulated wall time spent waiting on the condition variable.", labels, nil),
		accumulatedCheckoutSeconds: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "checkout_seconds_total"),
			"Accumulated checkout duration across all released or reclaimed connections.", labels, nil),
		accumulatedOverdueCheckoutSecs: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "overdue_checkout_seconds_total"),
			"Accumulated checkout duration of reclaimed overdue connections.", labels, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.idle
	ch <- c.active
	ch <- c.requestCount
	ch <- c.hadToWaitCount
	ch <- c.badConnectionCount
	ch <- c.claimedOverdueConnectionCount
	ch <- c.accumulatedRequestSeconds
	ch <- c.accumulatedWaitSeconds
	ch <- c.accumulatedCheckoutSeconds
	ch <- c.accumulatedOverdueCheckoutSecs
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.pool.Stats()

	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(s.Idle))
	ch <- prometheus.MustNewConstMetric(c.active, prometheus.GaugeValue, float64(s.Active))
	ch <- prometheus.MustNewConstMetric(c.requestCount, prometheus.CounterValue, float64(s.RequestCount))
	ch <- prometheus.MustNewConstMetric(c.hadToWaitCount, prometheus.CounterValue, float64(s.HadToWaitCount))
	ch <- prometheus.MustNewConstMetric(c.badConnectionCount, prometheus.CounterValue, float64(s.BadConnectionCount))
	ch <- prometheus.MustNewConstMetric(c.claimedOverdueConnectionCount, prometheus.CounterValue, float64(s.ClaimedOverdueConnectionCount))
	ch <- prometheus.MustNewConstMetric(c.accumulatedRequestSeconds, prometheus.CounterValue, s.AccumulatedRequestTime.Seconds())
	ch <- prometheus.MustNewConstMetric(c.accumulatedWaitSeconds, prometheus.CounterValue, s.AccumulatedWaitTime.Seconds())
	ch <- prometheus.MustNewConstMetric(c.accumulatedCheckoutSeconds, prometheus.CounterValue, s.AccumulatedCheckoutTime.Seconds())
	ch <- prometheus.MustNewConstMetric(c.accumulatedOverdueCheckoutSecs, prometheus.CounterValue, s.AccumulatedCheckoutTimeOfOverdueConnections.Seconds())
}
