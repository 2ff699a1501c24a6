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

//go:build linux

package processmetrics_test

import (
	"runtime"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtkcaster/caster/pkg/private/processmetrics"
)

func workers(t *testing.T, reg *prometheus.Registry) map[string]bool {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	found := map[string]bool{}
	for _, mf := range mfs {
		if mf.GetName() != "caster_worker_running_seconds_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "worker" {
					found[l.GetValue()] = true
				}
			}
			assert.GreaterOrEqual(t, m.GetCounter().GetValue(), 0.0)
		}
	}
	return found
}

func TestTrackCurrentThread(t *testing.T) {
	c, err := processmetrics.NewCollector()
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(c))

	tracked := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		untrack := c.TrackCurrentThread("stream")
		defer untrack()
		time.Sleep(10 * time.Millisecond)
		close(tracked)
		<-release
	}()

	<-tracked
	assert.Equal(t, map[string]bool{"stream": true}, workers(t, reg))
	close(release)
	<-done
	assert.Empty(t, workers(t, reg))
}
