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

package wire

import (
	"encoding/binary"

	"github.com/rtkcaster/caster/pkg/private/serrors"
)

// PrefixLen is the length of the (caster ID, stream ID) frame prefix.
const PrefixLen = 16

// AppendPrefix appends the big-endian caster and stream ID to dst.
func AppendPrefix(dst []byte, casterID, streamID int64) []byte {
	dst = binary.BigEndian.AppendUint64(dst, uint64(casterID))
	return binary.BigEndian.AppendUint64(dst, uint64(streamID))
}

// Frame returns prefix followed by payload in a new slice.
func Frame(casterID, streamID int64, payload []byte) []byte {
	f := make([]byte, 0, PrefixLen+len(payload))
	return append(AppendPrefix(f, casterID, streamID), payload...)
}

// SplitPrefix splits a frame into its IDs and the remaining payload. The
// payload aliases frame.
func SplitPrefix(frame []byte) (casterID, streamID int64, payload []byte, err error) {
	if len(frame) < PrefixLen {
		return 0, 0, nil, serrors.JoinNoStack(ErrMalformed, nil,
			"detail", "frame shorter than prefix", "len", len(frame))
	}
	casterID = int64(binary.BigEndian.Uint64(frame[:8]))
	streamID = int64(binary.BigEndian.Uint64(frame[8:PrefixLen]))
	return casterID, streamID, frame[PrefixLen:], nil
}

// Topic returns the subscription filter that selects frames of one stream.
func Topic(casterID, streamID int64) string {
	return string(AppendPrefix(nil, casterID, streamID))
}
