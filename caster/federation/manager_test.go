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
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	zmq "github.com/pebbe/zmq4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtkcaster/caster/caster/federation"
	"github.com/rtkcaster/caster/pkg/wire"
)

var seq atomic.Uint64

func endpoint(name string) string {
	return fmt.Sprintf("inproc://federation-test-%s-%d", name, seq.Add(1))
}

func bind(t *testing.T, typ zmq.Type, ep string) *zmq.Socket {
	t.Helper()
	sock, err := zmq.NewSocket(typ)
	require.NoError(t, err)
	require.NoError(t, sock.SetLinger(0))
	require.NoError(t, sock.Bind(ep))
	return sock
}

// serve answers n requests on a REP socket and forwards them on the returned
// channel.
func serve(t *testing.T, sock *zmq.Socket, n int, reply []byte) <-chan []byte {
	t.Helper()
	reqs := make(chan []byte, n)
	go func() {
		defer sock.Close()
		for i := 0; i < n; i++ {
			req, err := sock.RecvBytes(0)
			if err != nil {
				return
			}
			reqs <- req
			if _, err := sock.SendBytes(reply, 0); err != nil {
				return
			}
		}
	}()
	return reqs
}

func decodeProxy(t *testing.T, raw []byte) *wire.ProxyRequest {
	t.Helper()
	var req wire.ProxyRequest
	require.NoError(t, req.Unmarshal(raw))
	return &req
}

func TestAddProxy(t *testing.T) {
	controlEP, queryEP, loopEP := endpoint("control"), endpoint("query"), endpoint("loop")
	ack := (&wire.Ack{Succeeded: true}).Marshal()
	control := serve(t, bind(t, zmq.REP, controlEP), 1, ack)
	roster := &wire.QueryReply{
		CasterID: 9,
		Stations: []*wire.StationInfo{
			{CasterID: 9, StreamID: 42, Name: "a"},
			{CasterID: 9, StreamID: 43, Name: "b"},
		},
	}
	queries := serve(t, bind(t, zmq.REP, queryEP), 1, roster.Marshal())
	loop := bind(t, zmq.PULL, loopEP)
	defer loop.Close()
	require.NoError(t, loop.SetRcvtimeo(time.Second))

	m := &federation.Manager{
		Control:  controlEP,
		Loopback: loopEP,
		Settle:   10 * time.Millisecond,
		Timeout:  time.Second,
	}
	eps := wire.ProxyEndpoints{Query: queryEP, Publish: "tcp://remote:1", Notify: "tcp://remote:2"}
	require.NoError(t, m.AddProxy(context.Background(), eps))

	req := decodeProxy(t, <-control)
	assert.Equal(t, wire.ProxyAdd, req.Op)
	assert.Equal(t, eps, req.Endpoints)
	var q wire.QueryRequest
	require.NoError(t, q.Unmarshal(<-queries))
	assert.Empty(t, q.SubQueries)

	for _, want := range []int64{42, 43} {
		frame, err := loop.RecvBytes(0)
		require.NoError(t, err)
		casterID, streamID, payload, err := wire.SplitPrefix(frame)
		require.NoError(t, err)
		assert.Equal(t, int64(9), casterID)
		assert.Equal(t, want, streamID)
		var n wire.Notification
		require.NoError(t, n.Unmarshal(payload))
		assert.Equal(t, wire.NotificationNewStation, n.Kind)
		assert.Equal(t, want, n.Station.StreamID)
	}
}

func TestAddProxyRollback(t *testing.T) {
	controlEP := endpoint("control")
	ack := (&wire.Ack{Succeeded: true}).Marshal()
	control := serve(t, bind(t, zmq.REP, controlEP), 2, ack)

	m := &federation.Manager{
		Control:  controlEP,
		Loopback: endpoint("loop"),
		Settle:   time.Millisecond,
		Timeout:  100 * time.Millisecond,
	}
	// Nothing answers on the query endpoint.
	eps := wire.ProxyEndpoints{Query: endpoint("silent")}
	err := m.AddProxy(context.Background(), eps)
	assert.ErrorIs(t, err, federation.ErrUnreachable)

	assert.Equal(t, wire.ProxyAdd, decodeProxy(t, <-control).Op)
	assert.Equal(t, wire.ProxyRemove, decodeProxy(t, <-control).Op)
}

func TestAddProxyAnnounceRollback(t *testing.T) {
	controlEP, queryEP := endpoint("control"), endpoint("query")
	ack := (&wire.Ack{Succeeded: true}).Marshal()
	control := serve(t, bind(t, zmq.REP, controlEP), 2, ack)
	roster := &wire.QueryReply{
		CasterID: 9,
		Stations: []*wire.StationInfo{{CasterID: 9, StreamID: 42, Name: "a"}},
	}
	serve(t, bind(t, zmq.REP, queryEP), 1, roster.Marshal())

	m := &federation.Manager{
		Control:  controlEP,
		Loopback: "not-an-endpoint",
		Settle:   time.Millisecond,
		Timeout:  time.Second,
	}
	err := m.AddProxy(context.Background(), wire.ProxyEndpoints{Query: queryEP})
	assert.Error(t, err)

	assert.Equal(t, wire.ProxyAdd, decodeProxy(t, <-control).Op)
	assert.Equal(t, wire.ProxyRemove, decodeProxy(t, <-control).Op)
}

func TestProxyRefused(t *testing.T) {
	controlEP := endpoint("control")
	nack := wire.Failed(wire.FailureMalformed, "bad endpoint").Marshal()
	serve(t, bind(t, zmq.REP, controlEP), 1, nack)
	m := &federation.Manager{Control: controlEP, Timeout: time.Second}
	err := m.RemoveProxy(context.Background(), wire.ProxyEndpoints{})
	assert.ErrorIs(t, err, federation.ErrRefused)
}
