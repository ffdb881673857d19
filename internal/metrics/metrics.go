// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics collects Prometheus counters for a fetch run and writes
// them in the node_exporter textfile format, so scheduled runs can be
// scraped without the tool serving HTTP.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pdiddy/archive-fetch/pkg/types"
)

const namespace = "archive_fetch"

// Collector holds the run's metrics in a private registry.
type Collector struct {
	registry *prometheus.Registry

	Items            *prometheus.CounterVec
	BytesDownloaded  prometheus.Counter
	DownloadDuration prometheus.Histogram
	LastRun          prometheus.Gauge
}

// NewCollector returns a Collector whose metrics carry a constant
// collection label.
func NewCollector(collection string) *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(prometheus.WrapRegistererWith(prometheus.Labels{"collection": collection}, reg))

	return &Collector{
		registry: reg,
		Items: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "items",
				Name:      "total",
			},
			[]string{"outcome"},
		),
		BytesDownloaded: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "download",
				Name:      "bytes_total",
			},
		),
		DownloadDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "download",
				Name:      "duration_seconds",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
		),
		LastRun: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_timestamp_seconds",
			},
		),
	}
}

// Record counts one item result.
func (c *Collector) Record(_ context.Context, item types.ItemResult) error {
	c.Items.WithLabelValues(string(item.Outcome)).Inc()
	c.BytesDownloaded.Add(float64(item.Bytes))
	if !item.Outcome.Skipped() {
		c.DownloadDuration.Observe(item.Duration.Seconds())
	}
	c.LastRun.Set(float64(item.At.Unix()))
	return nil
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteTextfile writes the collected metrics to path.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
