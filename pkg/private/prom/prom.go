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

// Package prom contains label names and registration helpers shared by the
// caster metrics.
package prom

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Common label names.
const (
	// LabelResult is the label for result classifications.
	LabelResult = "result"
	// LabelSource is the label for the origin of a published frame.
	LabelSource = "source"
	// LabelClass is the label for the station class.
	LabelClass = "class"
	// LabelReason is the label for the reason a frame was dropped.
	LabelReason = "reason"
	// LabelKind is the label for the kind of a registry entry.
	LabelKind = "kind"
)

// Success is the result label value of a request that succeeded.
const Success = "ok"

// SafeRegister registers c with reg and returns the registered collector. If
// an equal collector was already registered, that one is returned. Any other
// error panics, as with MustRegister.
func SafeRegister(reg prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector
		}
		panic(err)
	}
	return c
}

// ExportCasterID exports the configured caster ID, so that dashboards can
// tell federated casters apart.
func ExportCasterID(reg prometheus.Registerer, id int64) {
	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "caster_id",
		Help: "The caster ID from the config file.",
	}, []string{"id"})
	SafeRegister(reg, g).(*prometheus.GaugeVec).WithLabelValues(strconv.FormatInt(id, 10)).Set(1)
}
