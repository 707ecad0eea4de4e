// Package metrics exposes stormbus statistics as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dshills/stormbus"
)

// Collector implements prometheus.Collector over a bus's statistics.
// Register it with any prometheus.Registerer:
//
//	prometheus.MustRegister(metrics.NewCollector(bus))
type Collector struct {
	bus *stormbus.Bus

	eventsPosted    *prometheus.Desc
	eventsDelivered *prometheus.Desc
	handlerErrors   *prometheus.Desc
	handlerPanics   *prometheus.Desc
	asyncSubmitted  *prometheus.Desc
	asyncOverflowed *prometheus.Desc
	queueDepth      *prometheus.Desc
	listeners       *prometheus.Desc
}

// NewCollector creates a collector for the given bus.
func NewCollector(bus *stormbus.Bus) *Collector {
	return &Collector{
		bus: bus,
		eventsPosted: prometheus.NewDesc(
			"stormbus_events_posted_total",
			"Total number of events posted with at least one subscriber",
			nil, nil,
		),
		eventsDelivered: prometheus.NewDesc(
			"stormbus_events_delivered_total",
			"Total number of successful handler invocations",
			nil, nil,
		),
		handlerErrors: prometheus.NewDesc(
			"stormbus_handler_errors_total",
			"Total number of handlers that returned errors",
			nil, nil,
		),
		handlerPanics: prometheus.NewDesc(
			"stormbus_handler_panics_total",
			"Total number of handlers that panicked",
			nil, nil,
		),
		asyncSubmitted: prometheus.NewDesc(
			"stormbus_async_submitted_total",
			"Total number of handler invocations submitted to the worker pool",
			nil, nil,
		),
		asyncOverflowed: prometheus.NewDesc(
			"stormbus_async_overflowed_total",
			"Total number of async invocations run outside the queue because it was full",
			nil, nil,
		),
		queueDepth: prometheus.NewDesc(
			"stormbus_queue_depth",
			"Current async queue depth",
			nil, nil,
		),
		listeners: prometheus.NewDesc(
			"stormbus_listeners",
			"Current membership count by ownership mode",
			[]string{"ownership"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.eventsPosted
	ch <- c.eventsDelivered
	ch <- c.handlerErrors
	ch <- c.handlerPanics
	ch <- c.asyncSubmitted
	ch <- c.asyncOverflowed
	ch <- c.queueDepth
	ch <- c.listeners
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.bus.Stats()
	ch <- prometheus.MustNewConstMetric(c.eventsPosted, prometheus.CounterValue, float64(s.EventsPosted))
	ch <- prometheus.MustNewConstMetric(c.eventsDelivered, prometheus.CounterValue, float64(s.EventsDelivered))
	ch <- prometheus.MustNewConstMetric(c.handlerErrors, prometheus.CounterValue, float64(s.HandlerErrors))
	ch <- prometheus.MustNewConstMetric(c.handlerPanics, prometheus.CounterValue, float64(s.HandlerPanics))
	ch <- prometheus.MustNewConstMetric(c.asyncSubmitted, prometheus.CounterValue, float64(s.AsyncSubmitted))
	ch <- prometheus.MustNewConstMetric(c.asyncOverflowed, prometheus.CounterValue, float64(s.AsyncOverflowed))
	ch <- prometheus.MustNewConstMetric(c.queueDepth, prometheus.GaugeValue, float64(s.QueueDepth))
	ch <- prometheus.MustNewConstMetric(c.listeners, prometheus.GaugeValue, float64(s.StrongListeners), "strong")
	ch <- prometheus.MustNewConstMetric(c.listeners, prometheus.GaugeValue, float64(s.WeakListeners), "weak")
}
