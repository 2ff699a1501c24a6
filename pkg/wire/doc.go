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

// Package wire defines the messages exchanged with the caster and their binary
// encoding.
//
// Messages use the protocol buffer wire format. Every message type provides
// Marshal and Unmarshal; Unmarshal errors match ErrMalformed. Scalar fields are
// always written, so a decoded message reports which fields were present on the
// wire (see StationInfo.Has).
//
// Frames published on the client and proxy publish channels, as well as status
// notifications, start with a 16 byte prefix holding the caster ID and the
// stream ID as big-endian 64 bit integers (see AppendPrefix and SplitPrefix).
package wire
