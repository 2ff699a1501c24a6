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

//go:build !linux

package processmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector reports nothing on this platform.
type Collector struct{}

// NewCollector creates a collector for the current process.
func NewCollector() (*Collector, error) {
	return &Collector{}, nil
}

// TrackCurrentThread does nothing on this platform.
func (c *Collector) TrackCurrentThread(name string) func() {
	return func() {}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {}
