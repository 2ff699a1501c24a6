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

package casterclient

import (
	"time"

	zmq "github.com/pebbe/zmq4"

	"github.com/rtkcaster/caster/pkg/private/serrors"
	"github.com/rtkcaster/caster/pkg/wire"
)

// Message is a frame received from a publish or notification channel.
type Message struct {
	CasterID int64
	StreamID int64
	Payload  []byte
}

// Notification decodes the payload of a message received from a
// notification channel.
func (m *Message) Notification() (*wire.Notification, error) {
	var n wire.Notification
	if err := n.Unmarshal(m.Payload); err != nil {
		return nil, serrors.Wrap("decoding notification", err,
			"caster_id", m.CasterID, "stream_id", m.StreamID)
	}
	return &n, nil
}

// Subscriber receives frames from a publish or notification channel. Nothing
// is received until a subscription is added.
type Subscriber struct {
	sock *zmq.Socket
}

// NewSubscriber connects to endpoint. Recv waits at most timeout for a frame;
// a non-positive timeout blocks indefinitely.
func NewSubscriber(endpoint string, timeout time.Duration) (*Subscriber, error) {
	sock, err := zmq.NewSocket(zmq.SUB)
	if err != nil {
		return nil, serrors.Wrap("creating subscriber socket", err)
	}
	if timeout <= 0 {
		timeout = -1
	}
	if err := sock.SetRcvtimeo(timeout); err != nil {
		sock.Close()
		return nil, serrors.Wrap("setting receive timeout", err)
	}
	if err := sock.SetLinger(0); err != nil {
		sock.Close()
		return nil, serrors.Wrap("setting linger", err)
	}
	if err := sock.Connect(endpoint); err != nil {
		sock.Close()
		return nil, serrors.Wrap("connecting", err, "endpoint", endpoint)
	}
	return &Subscriber{sock: sock}, nil
}

// Subscribe selects the frames of one stream.
func (s *Subscriber) Subscribe(casterID, streamID int64) error {
	return s.sock.SetSubscribe(wire.Topic(casterID, streamID))
}

// Unsubscribe removes a subscription added with Subscribe.
func (s *Subscriber) Unsubscribe(casterID, streamID int64) error {
	return s.sock.SetUnsubscribe(wire.Topic(casterID, streamID))
}

// SubscribeAll selects every frame.
func (s *Subscriber) SubscribeAll() error {
	return s.sock.SetSubscribe("")
}

// Recv returns the next frame. It returns ErrTimeout if none arrives in time.
func (s *Subscriber) Recv() (Message, error) {
	raw, err := s.sock.RecvBytes(0)
	if err != nil {
		if isTimeout(err) {
			return Message{}, ErrTimeout
		}
		return Message{}, serrors.Wrap("receiving frame", err)
	}
	casterID, streamID, payload, err := wire.SplitPrefix(raw)
	if err != nil {
		return Message{}, err
	}
	return Message{CasterID: casterID, StreamID: streamID, Payload: payload}, nil
}

// Close closes the socket.
func (s *Subscriber) Close() error {
	return s.sock.Close()
}
