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

package caster

import (
	"fmt"

	zmq "github.com/pebbe/zmq4"

	"github.com/rtkcaster/caster/pkg/private/serrors"
)

// internal returns the in-process address of a caster channel.
func internal(casterID int64, name string) string {
	return fmt.Sprintf("inproc://caster-%d-%s", casterID, name)
}

// bind creates a socket bound to all non-empty endpoints. It returns the
// socket and the resolved address of the first endpoint.
func bind(typ zmq.Type, endpoints ...string) (*zmq.Socket, string, error) {
	sock, err := zmq.NewSocket(typ)
	if err != nil {
		return nil, "", serrors.Wrap("creating socket", err, "type", typ)
	}
	if err := sock.SetLinger(0); err != nil {
		sock.Close()
		return nil, "", serrors.Wrap("setting linger", err)
	}
	var resolved string
	for _, ep := range endpoints {
		if ep == "" {
			continue
		}
		if err := sock.Bind(ep); err != nil {
			sock.Close()
			return nil, "", serrors.Wrap("binding socket", err, "type", typ, "endpoint", ep)
		}
		if resolved == "" {
			if resolved, err = sock.GetLastEndpoint(); err != nil {
				sock.Close()
				return nil, "", serrors.Wrap("resolving endpoint", err, "endpoint", ep)
			}
		}
	}
	return sock, resolved, nil
}

// subscriber creates a SUB socket that receives everything and connects to
// the given endpoints.
func subscriber(endpoints ...string) (*zmq.Socket, error) {
	sock, err := zmq.NewSocket(zmq.SUB)
	if err != nil {
		return nil, serrors.Wrap("creating socket", err, "type", zmq.SUB)
	}
	if err := sock.SetLinger(0); err != nil {
		sock.Close()
		return nil, serrors.Wrap("setting linger", err)
	}
	if err := sock.SetSubscribe(""); err != nil {
		sock.Close()
		return nil, serrors.Wrap("subscribing", err)
	}
	for _, ep := range endpoints {
		if err := sock.Connect(ep); err != nil {
			sock.Close()
			return nil, serrors.Wrap("connecting socket", err, "endpoint", ep)
		}
	}
	return sock, nil
}

// request is a request received on a ROUTER socket from a REQ peer. The
// route holds the identity frames and the empty delimiter.
type request struct {
	route [][]byte
	body  []byte
}

// recvRequest reads one request. ok is false if the message does not carry
// a routing envelope; such messages are dropped.
func recvRequest(sock *zmq.Socket) (req request, ok bool, err error) {
	msg, err := sock.RecvMessageBytes(0)
	if err != nil {
		return request{}, false, serrors.Wrap("receiving request", err)
	}
	for i := len(msg) - 2; i >= 0; i-- {
		if len(msg[i]) == 0 {
			return request{route: msg[:i+1], body: msg[len(msg)-1]}, i == len(msg)-2, nil
		}
	}
	return request{}, false, nil
}

// reply answers req.
func reply(sock *zmq.Socket, req request, body []byte) error {
	if _, err := sock.SendMessage(req.route, body); err != nil {
		return serrors.Wrap("sending reply", err)
	}
	return nil
}

// closeAll closes sockets that were not handed to a reactor.
func closeAll(socks ...*zmq.Socket) {
	for _, s := range socks {
		if s != nil {
			s.Close()
		}
	}
}
