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
	"sort"
	"strings"
	"sync"
)

// TestCounter is an in-memory Counter for tests. Counters derived with With
// share the storage of their parent, keyed by the full label set.
type TestCounter struct {
	mtx    *sync.Mutex
	values map[string]float64
	lvs    labelValues
}

// NewTestCounter creates an empty test counter.
func NewTestCounter() *TestCounter {
	return &TestCounter{mtx: &sync.Mutex{}, values: map[string]float64{}}
}

// With implements Counter.
func (c *TestCounter) With(kv ...string) Counter {
	return &TestCounter{mtx: c.mtx, values: c.values, lvs: c.lvs.with(kv...)}
}

// Add implements Counter.
func (c *TestCounter) Add(v float64) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.values[c.key()] += v
}

// Value returns the accumulated value for exactly this label set.
func (c *TestCounter) Value() float64 {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.values[c.key()]
}

func (c *TestCounter) key() string {
	pairs := make([]string, 0, len(c.lvs)/2)
	for i := 0; i+1 < len(c.lvs); i += 2 {
		pairs = append(pairs, c.lvs[i]+"="+c.lvs[i+1])
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

// CounterValue returns the value of a test counter, or 0 for any other kind.
func CounterValue(c Counter) float64 {
	if tc, ok := c.(*TestCounter); ok {
		return tc.Value()
	}
	return 0
}
