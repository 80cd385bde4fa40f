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

// Package metrics exposes Prometheus counters and histograms for indexing,
// search, and summarization, following the same singleton-with-sync.Once
// pattern the ingestion pipeline used for its own metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type astraMetrics struct {
	once sync.Once

	filesIndexed     prometheus.Counter
	filesSkipped     prometheus.Counter
	symbolsIndexed   prometheus.Counter
	parseErrors      prometheus.Counter
	watchEventsTotal prometheus.Counter
	watchRebuilds    prometheus.Counter

	summarizeBatches prometheus.Counter
	summarizeErrors  prometheus.Counter

	searchesTotal prometheus.Counter
	searchLatency prometheus.Histogram
	indexDuration prometheus.Histogram
}

var m astraMetrics

func (m *astraMetrics) init() {
	m.once.Do(func() {
		m.filesIndexed = prometheus.NewCounter(prometheus.CounterOpts{Name: "astra_files_indexed_total", Help: "Files successfully parsed into the code index"})
		m.filesSkipped = prometheus.NewCounter(prometheus.CounterOpts{Name: "astra_files_skipped_total", Help: "Files skipped during indexing (excluded or oversized)"})
		m.symbolsIndexed = prometheus.NewCounter(prometheus.CounterOpts{Name: "astra_symbols_indexed_total", Help: "Symbols extracted during indexing"})
		m.parseErrors = prometheus.NewCounter(prometheus.CounterOpts{Name: "astra_parse_errors_total", Help: "Files that failed to parse"})
		m.watchEventsTotal = prometheus.NewCounter(prometheus.CounterOpts{Name: "astra_watch_events_total", Help: "Filesystem events observed in watch mode"})
		m.watchRebuilds = prometheus.NewCounter(prometheus.CounterOpts{Name: "astra_watch_rebuilds_total", Help: "Debounced incremental rebuilds triggered by watch mode"})

		m.summarizeBatches = prometheus.NewCounter(prometheus.CounterOpts{Name: "astra_summarize_batches_total", Help: "Function summarization batches sent to the LLM provider"})
		m.summarizeErrors = prometheus.NewCounter(prometheus.CounterOpts{Name: "astra_summarize_errors_total", Help: "Function summarization batches that failed"})

		m.searchesTotal = prometheus.NewCounter(prometheus.CounterOpts{Name: "astra_searches_total", Help: "Search pipeline invocations"})

		buckets := []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
		m.searchLatency = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "astra_search_latency_seconds", Help: "Comprehensive search duration", Buckets: buckets})
		m.indexDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "astra_index_duration_seconds", Help: "Full index build duration", Buckets: buckets})

		prometheus.MustRegister(
			m.filesIndexed, m.filesSkipped, m.symbolsIndexed, m.parseErrors,
			m.watchEventsTotal, m.watchRebuilds,
			m.summarizeBatches, m.summarizeErrors,
			m.searchesTotal, m.searchLatency, m.indexDuration,
		)
	})
}

func RecordFileIndexed(symbolCount int) {
	m.init()
	m.filesIndexed.Inc()
	m.symbolsIndexed.Add(float64(symbolCount))
}

func RecordFileSkipped() {
	m.init()
	m.filesSkipped.Inc()
}

func RecordParseError() {
	m.init()
	m.parseErrors.Inc()
}

func RecordWatchEvent() {
	m.init()
	m.watchEventsTotal.Inc()
}

func RecordWatchRebuild() {
	m.init()
	m.watchRebuilds.Inc()
}

func RecordSummarizeBatch(failed bool) {
	m.init()
	m.summarizeBatches.Inc()
	if failed {
		m.summarizeErrors.Inc()
	}
}

func ObserveSearch(seconds float64) {
	m.init()
	m.searchesTotal.Inc()
	m.searchLatency.Observe(seconds)
}

func ObserveIndexDuration(seconds float64) {
	m.init()
	m.indexDuration.Observe(seconds)
}
