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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// NewPromGauge wraps a prometheus gauge vector as a gauge.
// Returns nil, if gv is nil.
func NewPromGauge(gv *prometheus.GaugeVec) Gauge {
	if gv == nil {
		return nil
	}
	return &gauge{gv: gv}
}

// NewPromCounter wraps a prometheus counter vector as a counter.
// Returns nil if cv is nil.
func NewPromCounter(cv *prometheus.CounterVec) Counter {
	if cv == nil {
		return nil
	}
	return &counter{cv: cv}
}

// labelValues holds alternating label names and values. An odd list is padded
// with "unknown".
type labelValues []string

func (lvs labelValues) with(kv ...string) labelValues {
	if len(kv)%2 != 0 {
		kv = append(kv, "unknown")
	}
	out := make(labelValues, 0, len(lvs)+len(kv))
	out = append(out, lvs...)
	return append(out, kv...)
}

func (lvs labelValues) labels() prometheus.Labels {
	l := make(prometheus.Labels, len(lvs)/2)
	for i := 0; i+1 < len(lvs); i += 2 {
		l[lvs[i]] = lvs[i+1]
	}
	return l
}

type gauge struct {
	gv  *prometheus.GaugeVec
	lvs labelValues
}

func (g *gauge) With(kv ...string) Gauge {
	return &gauge{gv: g.gv, lvs: g.lvs.with(kv...)}
}

func (g *gauge) Set(v float64) {
	g.gv.With(g.lvs.labels()).Set(v)
}

func (g *gauge) Add(v float64) {
	g.gv.With(g.lvs.labels()).Add(v)
}

type counter struct {
	cv  *prometheus.CounterVec
	lvs labelValues
}

func (c *counter) With(kv ...string) Counter {
	return &counter{cv: c.cv, lvs: c.lvs.with(kv...)}
}

func (c *counter) Add(v float64) {
	c.cv.With(c.lvs.labels()).Add(v)
}
