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

// Package event defines the timed maintenance events of the caster workers.
package event

import "fmt"

// Kind tags an Event.
type Kind int

const (
	// ConnectionTimeout checks a transmitter session for silence.
	ConnectionTimeout Kind = iota + 1
	// ConnectionKeyTimeout expires a connection key.
	ConnectionKeyTimeout
	// SigningKeyTimeout expires a signing key.
	SigningKeyTimeout
	// BlacklistTimeout lifts a blacklist entry.
	BlacklistTimeout
	// ProxyStreamTimeout checks a mirrored stream for silence.
	ProxyStreamTimeout
	// StatisticsTick triggers the periodic rate computation.
	StatisticsTick
)

func (k Kind) String() string {
	switch k {
	case ConnectionTimeout:
		return "connection-timeout"
	case ConnectionKeyTimeout:
		return "connection-key-timeout"
	case SigningKeyTimeout:
		return "signing-key-timeout"
	case BlacklistTimeout:
		return "blacklist-timeout"
	case ProxyStreamTimeout:
		return "proxy-stream-timeout"
	case StatisticsTick:
		return "statistics-tick"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event carries the minimal information to locate its target. Only the field
// matching the kind is set.
type Event struct {
	Kind     Kind
	Peer     string
	Key      [32]byte
	StreamID int64
}

func Connection(peer string) Event {
	return Event{Kind: ConnectionTimeout, Peer: peer}
}

func ConnectionKey(key [32]byte) Event {
	return Event{Kind: ConnectionKeyTimeout, Key: key}
}

func SigningKey(key [32]byte) Event {
	return Event{Kind: SigningKeyTimeout, Key: key}
}

func Blacklist(key [32]byte) Event {
	return Event{Kind: BlacklistTimeout, Key: key}
}

func ProxyStream(localID int64) Event {
	return Event{Kind: ProxyStreamTimeout, StreamID: localID}
}

func Tick() Event {
	return Event{Kind: StatisticsTick}
}
