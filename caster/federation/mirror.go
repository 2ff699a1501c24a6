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

// Package federation mirrors the stations of remote casters.
//
// A Mirror relabels remote (caster ID, stream ID) pairs into local stream IDs
// and tracks when each mirrored stream was last heard of. It is owned by the
// stream registration worker. A Manager performs the blocking calls needed to
// link a remote caster; it is safe to use from any goroutine because it only
// uses short-lived sockets of its own.
//
// Two casters mirroring each other would relabel each other's mirrors without
// end; federation graphs must be acyclic.
package federation

import "time"

// Remote identifies a stream on a remote caster.
type Remote struct {
	CasterID int64
	StreamID int64
}

type mirrored struct {
	remote   Remote
	lastSeen time.Time
}

// Mirror maps remote streams to local stream IDs. It is not safe for
// concurrent use.
type Mirror struct {
	byRemote map[Remote]int64
	byLocal  map[int64]*mirrored
}

// NewMirror returns an empty mirror.
func NewMirror() *Mirror {
	return &Mirror{
		byRemote: make(map[Remote]int64),
		byLocal:  make(map[int64]*mirrored),
	}
}

// Lookup returns the local stream ID of a remote stream.
func (m *Mirror) Lookup(r Remote) (int64, bool) {
	id, ok := m.byRemote[r]
	return id, ok
}

// Remote returns the remote stream behind a local stream ID.
func (m *Mirror) Remote(local int64) (Remote, bool) {
	e, ok := m.byLocal[local]
	if !ok {
		return Remote{}, false
	}
	return e.remote, true
}

// Add maps r to local as seen at now. An existing mapping of r is replaced.
func (m *Mirror) Add(r Remote, local int64, now time.Time) {
	if old, ok := m.byRemote[r]; ok {
		delete(m.byLocal, old)
	}
	m.byRemote[r] = local
	m.byLocal[local] = &mirrored{remote: r, lastSeen: now}
}

// Touch marks a mirrored stream as seen at now.
func (m *Mirror) Touch(local int64, now time.Time) bool {
	e, ok := m.byLocal[local]
	if ok {
		e.lastSeen = now
	}
	return ok
}

// Remove drops the mapping of a local stream.
func (m *Mirror) Remove(local int64) (Remote, bool) {
	e, ok := m.byLocal[local]
	if !ok {
		return Remote{}, false
	}
	delete(m.byLocal, local)
	delete(m.byRemote, e.remote)
	return e.remote, true
}

// Deadline returns when a mirrored stream times out if it stays silent.
func (m *Mirror) Deadline(local int64, timeout time.Duration) (time.Time, bool) {
	e, ok := m.byLocal[local]
	if !ok {
		return time.Time{}, false
	}
	return e.lastSeen.Add(timeout), true
}

// Len returns the number of mirrored streams.
func (m *Mirror) Len() int {
	return len(m.byLocal)
}
