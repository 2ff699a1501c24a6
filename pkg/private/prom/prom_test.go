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

package prom_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/rtkcaster/caster/pkg/private/prom"
)

func TestSafeRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	opts := prometheus.CounterOpts{Name: "caster_test_total", Help: "Test."}
	first := prom.SafeRegister(reg, prometheus.NewCounter(opts))
	second := prom.SafeRegister(reg, prometheus.NewCounter(opts))
	assert.Same(t, first, second)

	assert.Panics(t, func() {
		prom.SafeRegister(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "caster_test_total", Help: "Other.",
		}))
	})
}

func TestExportCasterID(t *testing.T) {
	reg := prometheus.NewRegistry()
	prom.ExportCasterID(reg, 42)
	prom.ExportCasterID(reg, 42)
	n, err := testutil.GatherAndCount(reg, "caster_id")
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}
