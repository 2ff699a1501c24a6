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

package caster

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rtkcaster/caster/caster/registry"
	"github.com/rtkcaster/caster/pkg/metrics"
	"github.com/rtkcaster/caster/pkg/private/prom"
	"github.com/rtkcaster/caster/pkg/wire"
	"github.com/rtkcaster/caster/private/reactor"
)

// Metrics are the metrics of a caster. Nil fields are not recorded.
type Metrics struct {
	// Connections is the number of connected transmitters, by class.
	Connections metrics.Gauge
	// MirroredStreams is the number of streams mirrored from remote casters.
	MirroredStreams metrics.Gauge
	// RegistryEntries is the number of keys and sessions the registry holds,
	// by kind.
	RegistryEntries metrics.Gauge
	// ForwardedFrames counts published payload frames, by source.
	ForwardedFrames metrics.Counter
	// ForwardedBytes counts published payload bytes, by source.
	ForwardedBytes metrics.Counter
	// DroppedFrames counts frames that were not forwarded, by reason.
	DroppedFrames metrics.Counter
	// Registrations counts registration requests, by result.
	Registrations metrics.Counter
	// Queries counts client queries, by result.
	Queries metrics.Counter
	// KeyRequests counts key management requests, by result.
	KeyRequests metrics.Counter
	// Threads is told which OS thread runs each worker.
	Threads reactor.ThreadTracker
}

// NewMetrics creates the caster metrics and registers them with reg. If reg
// is nil, the default registerer is used.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Connections: metrics.NewPromGauge(f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "caster_connections",
			Help: "Number of connected transmitters.",
		}, []string{prom.LabelClass})),
		MirroredStreams: metrics.NewPromGauge(f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "caster_mirrored_streams",
			Help: "Number of streams mirrored from remote casters.",
		}, []string{})),
		RegistryEntries: metrics.NewPromGauge(f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "caster_registry_entries",
			Help: "Number of keys and sessions held by the registry.",
		}, []string{prom.LabelKind})),
		ForwardedFrames: metrics.NewPromCounter(f.NewCounterVec(prometheus.CounterOpts{
			Name: "caster_forwarded_frames_total",
			Help: "Total number of published payload frames.",
		}, []string{prom.LabelSource})),
		ForwardedBytes: metrics.NewPromCounter(f.NewCounterVec(prometheus.CounterOpts{
			Name: "caster_forwarded_bytes_total",
			Help: "Total number of published payload bytes.",
		}, []string{prom.LabelSource})),
		DroppedFrames: metrics.NewPromCounter(f.NewCounterVec(prometheus.CounterOpts{
			Name: "caster_dropped_frames_total",
			Help: "Total number of frames that were dropped.",
		}, []string{prom.LabelReason})),
		Registrations: metrics.NewPromCounter(f.NewCounterVec(prometheus.CounterOpts{
			Name: "caster_registrations_total",
			Help: "Total number of registration requests.",
		}, []string{prom.LabelResult})),
		Queries: metrics.NewPromCounter(f.NewCounterVec(prometheus.CounterOpts{
			Name: "caster_queries_total",
			Help: "Total number of client queries.",
		}, []string{prom.LabelResult})),
		KeyRequests: metrics.NewPromCounter(f.NewCounterVec(prometheus.CounterOpts{
			Name: "caster_key_requests_total",
			Help: "Total number of key management requests.",
		}, []string{prom.LabelResult})),
	}
}

const (
	sourceDirect = "direct"
	sourceMirror = "mirror"
)

// exportRegistry publishes the registry sizes.
func (m *Metrics) exportRegistry(s registry.Stats) {
	if m == nil {
		return
	}
	for kind, n := range map[string]int{
		"connections":      s.Connections,
		"authenticated":    s.Authenticated,
		"connection_keys":  s.ConnectionKeys,
		"official_keys":    s.OfficialKeys,
		"community_keys":   s.CommunityKeys,
		"blacklisted_keys": s.BlacklistedKeys,
	} {
		metrics.GaugeSet(metrics.GaugeWith(m.RegistryEntries, prom.LabelKind, kind), float64(n))
	}
}

func result(reason wire.FailureReason) string {
	if reason == wire.FailureNone {
		return prom.Success
	}
	return strings.ToLower(reason.String())
}

func classLabel(c wire.StationClass) string {
	return strings.ToLower(c.String())
}
