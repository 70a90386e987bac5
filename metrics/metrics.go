/*
Copyright 2026 The Bors Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package metrics exposes the queue engine's Prometheus metrics on a
// dedicated registry, mirroring the "collector_name"-wrapped registry
// this codebase's other components use rather than the global default
// registerer.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the counters and histograms the tick engine and
// driver update as they run.
type Recorder struct {
	registry *prometheus.Registry

	TicksTotal       *prometheus.CounterVec
	TickDuration     *prometheus.HistogramVec
	BuildsStarted    *prometheus.CounterVec
	BuildsCompleted  *prometheus.CounterVec
	CooldownsEntered *prometheus.CounterVec
	QueueDepth       *prometheus.GaugeVec
}

// NewRecorder builds a Recorder on its own registry, wrapped with a
// collector_name label the way cmd/exporter wraps its own registry,
// plus the standard process and Go runtime collectors.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	wrapped := prometheus.WrapRegistererWith(prometheus.Labels{"collector_name": "bors"}, registry)
	factory := promauto.With(wrapped)

	registry.MustRegister(
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)

	return &Recorder{
		registry: registry,

		TicksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bors_ticks_total",
			Help: "Number of queue engine ticks run, by repository and outcome.",
		}, []string{"repo", "outcome"}),

		TickDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bors_tick_duration_seconds",
			Help:    "Time spent processing one repository's tick.",
			Buckets: prometheus.DefBuckets,
		}, []string{"repo"}),

		BuildsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bors_builds_started_total",
			Help: "Number of trial builds started.",
		}, []string{"repo"}),

		BuildsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bors_builds_completed_total",
			Help: "Number of trial builds resolved, by final status.",
		}, []string{"repo", "status"}),

		CooldownsEntered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bors_cooldowns_entered_total",
			Help: "Number of times a repository entered cooldown after a failed fast-forward or merge attempt.",
		}, []string{"repo"}),

		QueueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bors_queue_depth",
			Help: "Number of PRs currently eligible for the merge queue.",
		}, []string{"repo"}),
	}
}

// Handler serves this Recorder's registry on /metrics.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// The methods below give *Recorder the shape of queue.Metrics without
// this package importing queue.

func (r *Recorder) ObserveTick(repo, outcome string, d time.Duration) {
	r.TicksTotal.WithLabelValues(repo, outcome).Inc()
	r.TickDuration.WithLabelValues(repo).Observe(d.Seconds())
}

func (r *Recorder) ObserveBuildStarted(repo string) {
	r.BuildsStarted.WithLabelValues(repo).Inc()
}

func (r *Recorder) ObserveBuildCompleted(repo, status string) {
	r.BuildsCompleted.WithLabelValues(repo, status).Inc()
}

func (r *Recorder) ObserveCooldown(repo string) {
	r.CooldownsEntered.WithLabelValues(repo).Inc()
}

func (r *Recorder) SetQueueDepth(repo string, depth int) {
	r.QueueDepth.WithLabelValues(repo).Set(float64(depth))
}
