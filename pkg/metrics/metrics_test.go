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

package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/rtkcaster/caster/pkg/metrics"
)

func TestNilMetrics(t *testing.T) {
	assert.NotPanics(t, func() {
		metrics.CounterInc(nil)
		metrics.CounterAdd(metrics.CounterWith(nil, "result", "ok"), 2)
		metrics.GaugeSet(nil, 1)
		metrics.GaugeAdd(metrics.GaugeWith(nil, "class", "official"), 1)
	})
	assert.Nil(t, metrics.NewPromCounter(nil))
	assert.Nil(t, metrics.NewPromGauge(nil))
}

func TestTestCounter(t *testing.T) {
	c := metrics.NewTestCounter()
	metrics.CounterInc(metrics.CounterWith(c, "result", "ok"))
	metrics.CounterAdd(metrics.CounterWith(c, "result", "ok"), 2)
	metrics.CounterInc(metrics.CounterWith(c, "result", "malformed"))

	assert.Equal(t, 3.0, metrics.CounterValue(c.With("result", "ok")))
	assert.Equal(t, 1.0, metrics.CounterValue(c.With("result", "malformed")))
	assert.Zero(t, metrics.CounterValue(c))
	assert.Zero(t, metrics.CounterValue(nil))
}

func TestPromWrappers(t *testing.T) {
	cv := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "frames_total"},
		[]string{"source"})
	gv := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "connections"},
		[]string{"class"})
	c := metrics.NewPromCounter(cv)
	g := metrics.NewPromGauge(gv)

	metrics.CounterAdd(metrics.CounterWith(c, "source", "direct"), 3)
	metrics.CounterInc(metrics.CounterWith(c, "source", "mirror"))
	metrics.GaugeSet(metrics.GaugeWith(g, "class", "official"), 4)
	metrics.GaugeAdd(metrics.GaugeWith(g, "class", "official"), -1)
	// An odd label list is padded.
	metrics.GaugeSet(metrics.GaugeWith(g, "class"), 7)

	assert.Equal(t, 3.0, testutil.ToFloat64(cv.WithLabelValues("direct")))
	assert.Equal(t, 1.0, testutil.ToFloat64(cv.WithLabelValues("mirror")))
	assert.Equal(t, 3.0, testutil.ToFloat64(gv.WithLabelValues("official")))
	assert.Equal(t, 7.0, testutil.ToFloat64(gv.WithLabelValues("unknown")))
}
