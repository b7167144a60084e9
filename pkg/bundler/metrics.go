/*
Copyright © 2025 NVIDIA Corporation
SPDX-License-Identifier: Apache-2.0
*/

package bundler

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/aumtech/logbundle/pkg/defaults"
	"github.com/aumtech/logbundle/pkg/errors"
)

// registry holds only collector metrics so the textfile export carries no
// process or runtime series.
var registry = prometheus.NewRegistry()

var (
	factory = promauto.With(registry)

	runsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logbundle_runs_total",
			Help: "Total number of collection runs by outcome",
		},
		[]string{"status"},
	)
	runDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "logbundle_run_duration_seconds",
			Help:    "Duration of a collection run in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)
	filesArchived = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logbundle_files_archived_total",
			Help: "Total number of matched files added to an archive",
		},
		[]string{"source"},
	)
	dumpAnalyses = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logbundle_dump_analyses_total",
			Help: "Total number of core dump analyses by outcome",
		},
		[]string{"status"},
	)
	archiveBytes = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "logbundle_archive_size_bytes",
			Help: "Size of the last finalized archive in bytes",
		},
	)
)

// WriteMetrics writes the collector metrics to path in the Prometheus text
// format, for pickup by a node exporter textfile collector.
func WriteMetrics(path string) error {
	if err := prometheus.WriteToTextfile(path, registry); err != nil {
		return errors.WrapWithContext(errors.ErrCodeFileSystem, "failed to write metrics", err,
			map[string]any{"path": path})
	}
	if err := os.Chmod(path, defaults.MetricsFileMode); err != nil {
		return errors.WrapWithContext(errors.ErrCodeFileSystem, "failed to set metrics file mode", err,
			map[string]any{"path": path})
	}
	return nil
}
