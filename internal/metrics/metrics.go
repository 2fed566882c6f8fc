// Package metrics exports the outcome of migration runs as Prometheus gauges
// for a node-exporter textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/movingbox/movingbox-migrator/internal/domain"
)

const namespace = "movingbox_migrator"

// Recorder holds the run gauges of one process
type Recorder struct {
	registry *prometheus.Registry

	result    *prometheus.GaugeVec
	duration  *prometheus.GaugeVec
	finished  *prometheus.GaugeVec
	rows      *prometheus.GaugeVec
	skipped   *prometheus.GaugeVec
	available prometheus.Gauge
}

// NewRecorder creates a recorder with its own registry
func NewRecorder() *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.result = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_result",
			Help:      "1 for the status of the last run of each path",
		},
		[]string{"path", "status"},
	)
	r.duration = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of the last run of each path",
		},
		[]string{"path"},
	)
	r.finished = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_finished_timestamp_seconds",
			Help:      "Unix time the last run of each path finished",
		},
		[]string{"path"},
	)
	r.rows = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rows_written",
			Help:      "Rows written to each target table by the last run",
		},
		[]string{"path", "table"},
	)
	r.skipped = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rows_skipped",
			Help:      "Tolerated row-level losses of the last run by kind",
		},
		[]string{"path", "kind"},
	)
	r.available = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "remote_available_items",
		Help:      "Item records found by the last remote probe",
	})

	r.registry.MustRegister(r.result, r.duration, r.finished, r.rows, r.skipped, r.available)
	return r
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Record stores the outcome of one run of path ("local", "remote_probe" or "remote")
func (r *Recorder) Record(path string, result domain.Result, duration time.Duration, finished time.Time) {
	r.result.WithLabelValues(path, string(result.Status)).Set(1)
	r.duration.WithLabelValues(path).Set(duration.Seconds())
	r.finished.WithLabelValues(path).Set(float64(finished.Unix()))

	if result.Status == domain.StatusRecoverable {
		r.available.Set(float64(result.Available))
	}
	if result.Status != domain.StatusSuccess {
		return
	}

	s := result.Stats
	for table, n := range map[string]int{
		"homes":               s.Homes,
		"insurance_policies":  s.Policies,
		"inventory_locations": s.Locations,
		"inventory_items":     s.Items,
		"inventory_labels":    s.Labels,
		"item_labels":         s.ItemLabels,
		"home_policies":       s.HomePolicies,
	} {
		r.rows.WithLabelValues(path, table).Set(float64(n))
	}
	for kind, n := range map[string]int{
		"color":            s.SkippedColors,
		"array":            s.SkippedArrays,
		"item_label":       s.SkippedItemLabels,
		"home_policy":      s.SkippedHomePolicies,
		"location_home":    s.SkippedLocationHomes,
		"item_location":    s.SkippedItemLocations,
		"item_home":        s.SkippedItemHomes,
		"record":           s.SkippedRecords,
		"duplicate_id":     s.DuplicateIDs,
		"fabricated_id":    s.FabricatedIDs,
		"backfilled_home":  s.BackfilledItemHomes,
		"fallback_assigns": s.FallbackAssignments,
	} {
		r.skipped.WithLabelValues(path, kind).Set(float64(n))
	}
}

// WriteTextfile writes every gauge to path atomically
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
