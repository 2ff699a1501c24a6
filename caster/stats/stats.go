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

// Package stats derives the observed update rate of streams from the frames
// forwarded for them.
//
// Frames are counted per tick. On every tick the current interval is closed
// and the rate over the sliding window is recomputed in frames per second. Only rates that changed
// since the last report are returned, so the store is not rewritten for
// steady streams.
package stats

import "time"

// Update is a changed rate of a stream in frames per second.
type Update struct {
	StreamID int64
	Rate     float64
}

type stream struct {
	// counts is a ring of per-tick frame counts holding the window plus the
	// tick in progress at counts[pos].
	counts   []int
	pos      int
	sum      int
	reported float64
	ticks    int
}

// Tracker tracks the rates of all streams. It is not safe for concurrent use.
type Tracker struct {
	window  int
	tick    float64
	streams map[int64]*stream
}

// New creates a tracker with a window of the given number of ticks, each tick
// long. A non-positive tick counts as one second.
func New(window int, tick time.Duration) *Tracker {
	if window < 1 {
		window = 1
	}
	if tick <= 0 {
		tick = time.Second
	}
	return &Tracker{
		window:  window,
		tick:    tick.Seconds(),
		streams: make(map[int64]*stream),
	}
}

// Add starts tracking a stream. Adding a tracked stream is a no-op.
func (t *Tracker) Add(id int64) {
	if _, ok := t.streams[id]; ok {
		return
	}
	t.streams[id] = &stream{counts: make([]int, t.window+1), reported: -1}
}

// Count records one frame of a stream. Frames of streams that are not tracked,
// for example because their removal was already seen, are ignored.
func (t *Tracker) Count(id int64) {
	s, ok := t.streams[id]
	if !ok {
		return
	}
	s.counts[s.pos]++
	s.sum++
}

// Remove stops tracking a stream.
func (t *Tracker) Remove(id int64) {
	delete(t.streams, id)
}

// Len returns the number of tracked streams.
func (t *Tracker) Len() int {
	return len(t.streams)
}

// Rate returns the current rate of a stream.
func (t *Tracker) Rate(id int64) (float64, bool) {
	s, ok := t.streams[id]
	if !ok {
		return 0, false
	}
	return t.rate(s), true
}

// rate averages over the full window once it has been observed, and over the
// elapsed ticks before that.
func (t *Tracker) rate(s *stream) float64 {
	span := min(max(s.ticks, 1), t.window)
	closed := s.sum - s.counts[s.pos]
	return float64(closed) / (float64(span) * t.tick)
}

// Tick closes the current interval of every stream and returns the rates that
// changed.
func (t *Tracker) Tick() []Update {
	var updates []Update
	for id, s := range t.streams {
		s.ticks++
		s.pos = (s.pos + 1) % len(s.counts)
		// Evict the oldest interval, which the new current one overwrites.
		s.sum -= s.counts[s.pos]
		s.counts[s.pos] = 0
		if r := t.rate(s); r != s.reported {
			s.reported = r
			updates = append(updates, Update{StreamID: id, Rate: r})
		}
	}
	return updates
}
