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

package casterclient_test

import (
	"crypto/ed25519"
	"testing"
	"time"

	zmq "github.com/pebbe/zmq4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/nacl/sign"

	"github.com/rtkcaster/caster/pkg/casterclient"
	"github.com/rtkcaster/caster/pkg/wire"
)

// registrar answers the first frame of a peer with reply and forwards every
// frame it receives.
func registrar(t *testing.T, sock *zmq.Socket, reply *wire.RegistrationReply) <-chan []byte {
	t.Helper()
	frames := make(chan []byte, 8)
	go func() {
		defer sock.Close()
		replied := false
		for {
			parts, err := sock.RecvMessageBytes(0)
			if err != nil || len(parts) != 2 {
				return
			}
			frames <- parts[1]
			if !replied {
				replied = true
				if _, err := sock.SendMessage(parts[0], reply.Marshal()); err != nil {
					return
				}
			}
		}
	}()
	return frames
}

func station() *wire.StationInfo {
	return &wire.StationInfo{
		Latitude:           47.3,
		Longitude:          8.5,
		ExpectedUpdateRate: 1,
		Format:             wire.FormatRTCMv3,
		Name:               "zurich",
	}
}

func TestTransmitterCommunity(t *testing.T) {
	ep := endpoint("register")
	sock := bind(t, zmq.ROUTER, ep)
	require.NoError(t, sock.SetRcvtimeo(2*time.Second))
	frames := registrar(t, sock, &wire.RegistrationReply{Succeeded: true, CasterID: 4, StreamID: 7})

	tx, err := casterclient.NewTransmitter(ep, time.Second)
	require.NoError(t, err)
	defer tx.Close()
	require.Error(t, tx.Send([]byte("early")))
	require.NoError(t, tx.Register(station()))
	assert.Equal(t, int64(4), tx.CasterID())
	assert.Equal(t, int64(7), tx.StreamID())

	var req wire.RegistrationRequest
	require.NoError(t, req.Unmarshal(<-frames))
	assert.Equal(t, "zurich", req.Station.Name)
	assert.Nil(t, req.Credentials)

	require.NoError(t, tx.Send([]byte("test string")))
	assert.Equal(t, []byte("test string"), <-frames)
	require.NoError(t, tx.Deregister())
	assert.Empty(t, <-frames)
	assert.Error(t, tx.Send([]byte("late")))
}

func TestTransmitterAuthenticated(t *testing.T) {
	ep := endpoint("register")
	sock := bind(t, zmq.ROUTER, ep)
	require.NoError(t, sock.SetRcvtimeo(2*time.Second))
	frames := registrar(t, sock, &wire.RegistrationReply{Succeeded: true, CasterID: 4, StreamID: 8})

	connPub, connPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	_, signer, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	creds := casterclient.NewCredentials(connPub, time.Now().Add(time.Hour), signer)

	tx, err := casterclient.NewTransmitter(ep, time.Second)
	require.NoError(t, err)
	defer tx.Close()
	require.NoError(t, tx.RegisterAuthenticated(station(), creds, connPriv))

	var req wire.RegistrationRequest
	require.NoError(t, req.Unmarshal(<-frames))
	require.NotNil(t, req.Credentials)
	assert.Equal(t, creds.Permissions, req.Credentials.Permissions)

	require.NoError(t, tx.Send([]byte("signed")))
	opened, ok := sign.Open(nil, <-frames, (*[32]byte)(connPub))
	require.True(t, ok)
	assert.Equal(t, []byte("signed"), opened)

	require.NoError(t, tx.Deregister())
	opened, ok = sign.Open(nil, <-frames, (*[32]byte)(connPub))
	require.True(t, ok)
	assert.Empty(t, opened)
}

func TestTransmitterRejected(t *testing.T) {
	ep := endpoint("register")
	sock := bind(t, zmq.ROUTER, ep)
	require.NoError(t, sock.SetRcvtimeo(2*time.Second))
	registrar(t, sock, &wire.RegistrationReply{Reason: wire.FailureMalformed})

	tx, err := casterclient.NewTransmitter(ep, time.Second)
	require.NoError(t, err)
	defer tx.Close()
	err = tx.Register(&wire.StationInfo{})
	assert.Equal(t, wire.FailureMalformed, casterclient.Reason(err))
	assert.Zero(t, tx.StreamID())
}

func TestSubscriber(t *testing.T) {
	ep := endpoint("publish")
	pub := bind(t, zmq.PUB, ep)
	defer pub.Close()

	sub, err := casterclient.NewSubscriber(ep, 20*time.Millisecond)
	require.NoError(t, err)
	defer sub.Close()
	require.NoError(t, sub.Subscribe(4, 7))

	_, err = sub.Recv()
	assert.ErrorIs(t, err, casterclient.ErrTimeout)

	// Subscriptions propagate asynchronously, so publish until one arrives.
	var msg casterclient.Message
	require.Eventually(t, func() bool {
		pub.SendBytes(wire.Frame(4, 6, []byte("other")), 0)
		pub.SendBytes(wire.Frame(4, 7, []byte("test string")), 0)
		m, err := sub.Recv()
		if err != nil {
			return false
		}
		msg = m
		return true
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, casterclient.Message{CasterID: 4, StreamID: 7, Payload: []byte("test string")}, msg)
}

func TestMessageNotification(t *testing.T) {
	s := station()
	msg := casterclient.Message{
		CasterID: 4,
		StreamID: 7,
		Payload:  wire.NewStationNotification(s).Marshal(),
	}
	n, err := msg.Notification()
	require.NoError(t, err)
	assert.Equal(t, wire.NotificationNewStation, n.Kind)
	require.NotNil(t, n.Station)
	assert.Equal(t, "zurich", n.Station.Name)

	msg.Payload = []byte{0xff}
	_, err = msg.Notification()
	assert.Error(t, err)
}
