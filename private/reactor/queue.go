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

package reactor

import (
	"container/heap"
	"time"
)

// Scheduled is an event together with its trigger time.
type Scheduled[E any] struct {
	At    time.Time
	Event E
}

type item[E any] struct {
	at  time.Time
	seq uint64
	ev  E
}

type items[E any] []item[E]

func (h items[E]) Len() int { return len(h) }

func (h items[E]) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].seq < h[j].seq
	}
	return h[i].at.Before(h[j].at)
}

func (h items[E]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *items[E]) Push(x any) { *h = append(*h, x.(item[E])) }

func (h *items[E]) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = item[E]{}
	*h = old[:n-1]
	return it
}

// Queue orders events by trigger time. Events with equal trigger times are
// returned in insertion order. Queue is not safe for concurrent use.
type Queue[E any] struct {
	h   items[E]
	seq uint64
}

// Push adds e to fire at the given time.
func (q *Queue[E]) Push(at time.Time, e E) {
	q.seq++
	heap.Push(&q.h, item[E]{at: at, seq: q.seq, ev: e})
}

// Peek returns the trigger time of the earliest event.
func (q *Queue[E]) Peek() (time.Time, bool) {
	if len(q.h) == 0 {
		return time.Time{}, false
	}
	return q.h[0].at, true
}

// PopDue removes and returns the earliest event if it is due at now.
func (q *Queue[E]) PopDue(now time.Time) (E, bool) {
	var zero E
	if len(q.h) == 0 || q.h[0].at.After(now) {
		return zero, false
	}
	return heap.Pop(&q.h).(item[E]).ev, true
}

// Len returns the number of queued events.
func (q *Queue[E]) Len() int {
	return len(q.h)
}
