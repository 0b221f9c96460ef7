// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the set of scan-time gauges/counters/histograms exposed over
// /metrics when the CLI's --metrics-addr flag is set.
type Metrics struct {
	ScanDuration  *prometheus.HistogramVec
	StageDuration *prometheus.HistogramVec
	FilesScanned  prometheus.Counter
	UnitsScanned  prometheus.Counter
	ShadowUnits   prometheus.Gauge
	ScanFailures  *prometheus.CounterVec
}

// NewMetrics registers a fresh Metrics set against reg. Passing a
// prometheus.NewRegistry() keeps test runs isolated from the default
// registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ScanDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "shade",
			Name:      "scan_duration_seconds",
			Help:      "Wall-clock duration of a completed scan, by scan kind.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 14),
		}, []string{"kind"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "shade",
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock duration of one pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"stage"}),
		FilesScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shade",
			Name:      "files_scanned_total",
			Help:      "Total number of source files processed across all scans.",
		}),
		UnitsScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shade",
			Name:      "units_scanned_total",
			Help:      "Total number of Units extracted across all scans.",
		}),
		ShadowUnits: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shade",
			Name:      "shadow_units",
			Help:      "Number of shadow=true Units in the most recently completed scan.",
		}),
		ScanFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shade",
			Name:      "scan_failures_total",
			Help:      "Scans that did not complete, by failure reason.",
		}, []string{"reason"}),
	}

	reg.MustRegister(m.ScanDuration, m.StageDuration, m.FilesScanned, m.UnitsScanned, m.ShadowUnits, m.ScanFailures)
	return m
}
