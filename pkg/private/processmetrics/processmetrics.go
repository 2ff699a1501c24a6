// Copyright 2026 The Caster Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package processmetrics exports scheduler statistics of the OS threads that
// run the caster workers.
//
// Every worker loop is locked to its own OS thread. For each tracked thread
// the collector reports the time it spent running and the time it spent
// runnable, that is waiting for a core. A worker whose runnable time grows
// quickly is starved of CPU:
//
//	rate(caster_worker_runnable_seconds_total[1m])
//
// The statistics are read from /proc and are only available on Linux. On
// other systems the collector reports nothing.
package processmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	runningTime = prometheus.NewDesc(
		"caster_worker_running_seconds_total",
		"CPU time the worker thread used since it was tracked.",
		[]string{"worker"}, nil,
	)
	runnableTime = prometheus.NewDesc(
		"caster_worker_runnable_seconds_total",
		"Time the worker thread waited for a core since it was tracked.",
		[]string{"worker"}, nil,
	)
)

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- runningTime
	ch <- runnableTime
}
