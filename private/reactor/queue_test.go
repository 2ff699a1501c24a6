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

package reactor_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rtkcaster/caster/private/reactor"
)

func TestQueueOrder(t *testing.T) {
	base := time.Unix(1000, 0)
	var q reactor.Queue[string]
	q.Push(base.Add(3*time.Second), "c")
	q.Push(base.Add(time.Second), "a1")
	q.Push(base.Add(2*time.Second), "b")
	q.Push(base.Add(time.Second), "a2")

	at, ok := q.Peek()
	assert.True(t, ok)
	assert.Equal(t, base.Add(time.Second), at)

	var got []string
	for {
		ev, ok := q.PopDue(base.Add(2 * time.Second))
		if !ok {
			break
		}
		got = append(got, ev)
	}
	assert.Equal(t, []string{"a1", "a2", "b"}, got)
	assert.Equal(t, 1, q.Len())

	_, ok = q.PopDue(base)
	assert.False(t, ok)
}

func TestQueueEmpty(t *testing.T) {
	var q reactor.Queue[int]
	_, ok := q.Peek()
	assert.False(t, ok)
	_, ok = q.PopDue(time.Now())
	assert.False(t, ok)
}
