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

package federation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rtkcaster/caster/caster/federation"
)

func TestMirror(t *testing.T) {
	m := federation.NewMirror()
	now := time.Unix(100, 0)
	r := federation.Remote{CasterID: 9, StreamID: 42}

	_, ok := m.Lookup(r)
	assert.False(t, ok)
	m.Add(r, 1, now)
	local, ok := m.Lookup(r)
	assert.True(t, ok)
	assert.Equal(t, int64(1), local)
	got, ok := m.Remote(1)
	assert.True(t, ok)
	assert.Equal(t, r, got)

	deadline, ok := m.Deadline(1, 10*time.Second)
	assert.True(t, ok)
	assert.Equal(t, now.Add(10*time.Second), deadline)
	assert.True(t, m.Touch(1, now.Add(5*time.Second)))
	deadline, _ = m.Deadline(1, 10*time.Second)
	assert.Equal(t, now.Add(15*time.Second), deadline)

	// Re-adding a remote stream under a new local ID drops the old mapping.
	m.Add(r, 2, now)
	assert.Equal(t, 1, m.Len())
	_, ok = m.Remote(1)
	assert.False(t, ok)

	removed, ok := m.Remove(2)
	assert.True(t, ok)
	assert.Equal(t, r, removed)
	_, ok = m.Remove(2)
	assert.False(t, ok)
	assert.False(t, m.Touch(2, now))
	assert.Equal(t, 0, m.Len())
}
