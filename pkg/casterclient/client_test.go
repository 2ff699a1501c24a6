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
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	zmq "github.com/pebbe/zmq4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/nacl/sign"

	"github.com/rtkcaster/caster/pkg/casterclient"
	"github.com/rtkcaster/caster/pkg/wire"
)

var seq atomic.Uint64

func endpoint(name string) string {
	return fmt.Sprintf("inproc://casterclient-test-%s-%d", name, seq.Add(1))
}

func bind(t *testing.T, typ zmq.Type, ep string) *zmq.Socket {
	t.Helper()
	sock, err := zmq.NewSocket(typ)
	require.NoError(t, err)
	require.NoError(t, sock.SetLinger(0))
	require.NoError(t, sock.Bind(ep))
	return sock
}

// serve answers one request on a REP socket and forwards it on the returned
// channel.
func serve(t *testing.T, sock *zmq.Socket, reply []byte) <-chan []byte {
	t.Helper()
	reqs := make(chan []byte, 1)
	go func() {
		defer sock.Close()
		req, err := sock.RecvBytes(0)
		if err != nil {
			return
		}
		reqs <- req
		sock.SendBytes(reply, 0)
	}()
	return reqs
}

func TestCallTimeout(t *testing.T) {
	_, err := casterclient.Call(endpoint("nobody"), []byte("x"), 50*time.Millisecond)
	assert.ErrorIs(t, err, casterclient.ErrUnreachable)
}

func TestQuery(t *testing.T) {
	testCases := map[string]struct {
		Reply     *wire.QueryReply
		Reason    wire.FailureReason
		AssertErr assert.ErrorAssertionFunc
	}{
		"stations": {
			Reply: &wire.QueryReply{
				CasterID: 3,
				Stations: []*wire.StationInfo{{CasterID: 3, StreamID: 1, Name: "a"}},
			},
			AssertErr: assert.NoError,
		},
		"too complex": {
			Reply:     &wire.QueryReply{Reason: wire.FailureTooComplex},
			Reason:    wire.FailureTooComplex,
			AssertErr: assert.Error,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			ep := endpoint("query")
			reqs := serve(t, bind(t, zmq.REP, ep), tc.Reply.Marshal())
			req := &wire.QueryRequest{SubQueries: []wire.SubQuery{{StreamIDs: []int64{1}}}}
			reply, err := casterclient.Query(ep, req, time.Second)
			tc.AssertErr(t, err)
			assert.Equal(t, tc.Reason, casterclient.Reason(err))
			var got wire.QueryRequest
			require.NoError(t, got.Unmarshal(<-reqs))
			assert.Equal(t, []int64{1}, got.SubQueries[0].StreamIDs)
			if err != nil {
				return
			}
			require.Len(t, reply.Stations, 1)
			assert.Equal(t, "a", reply.Stations[0].Name)
		})
	}
}

func TestKeyAdminApply(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	station, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	ep := endpoint("keys")
	reqs := serve(t, bind(t, zmq.REP, ep), (&wire.Ack{Succeeded: true}).Marshal())
	admin := &casterclient.KeyAdmin{Endpoint: ep, Key: priv, Timeout: time.Second}
	batch := &wire.KeyBatch{
		Official: []wire.KeyGrant{casterclient.Grant(station, time.Time{})},
	}
	before := time.Now().Unix()
	require.NoError(t, admin.Apply(batch))
	assert.Zero(t, batch.IssuedAt, "caller batch must not be modified")

	var req wire.KeyManagementRequest
	require.NoError(t, req.Unmarshal(<-reqs))
	raw, ok := sign.Open(nil, req.SignedBatch, (*[32]byte)(pub))
	require.True(t, ok)
	var got wire.KeyBatch
	require.NoError(t, got.Unmarshal(raw))
	assert.GreaterOrEqual(t, got.IssuedAt, before)
	require.Len(t, got.Official, 1)
	assert.Equal(t, []byte(station), got.Official[0].PublicKey)
	assert.Zero(t, got.Official[0].Expires)
}

func TestKeyAdminRejected(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	ep := endpoint("keys")
	serve(t, bind(t, zmq.REP, ep), wire.Failed(wire.FailureUnauthorized, "bad signature").Marshal())
	admin := &casterclient.KeyAdmin{Endpoint: ep, Key: priv, Timeout: time.Second}
	err = admin.Apply(&wire.KeyBatch{})
	var rejected *casterclient.RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, wire.FailureUnauthorized, rejected.Reason)
	assert.Equal(t, "bad signature", rejected.Detail)
}

func TestProxyAdmin(t *testing.T) {
	ep := endpoint("proxy")
	reqs := serve(t, bind(t, zmq.REP, ep), (&wire.Ack{Succeeded: true}).Marshal())
	eps := wire.ProxyEndpoints{Query: "q", Publish: "p", Notify: "n"}
	admin := &casterclient.ProxyAdmin{Endpoint: ep, Timeout: time.Second}
	require.NoError(t, admin.Remove(eps))

	var req wire.ProxyRequest
	require.NoError(t, req.Unmarshal(<-reqs))
	assert.Equal(t, wire.ProxyRemove, req.Op)
	assert.Equal(t, eps, req.Endpoints)
}

func TestNewCredentials(t *testing.T) {
	conn, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	signerPub, signer, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	until := time.Unix(1700000000, 0)

	c := casterclient.NewCredentials(conn, until, signer)
	var perms wire.Permissions
	require.NoError(t, perms.Unmarshal(c.Permissions))
	assert.Equal(t, []byte(conn), perms.PublicKey)
	assert.Equal(t, until.Unix(), perms.ValidUntil)
	require.Len(t, c.Signatures, 1)
	assert.Equal(t, []byte(signerPub), c.Signatures[0].PublicKey)
	assert.True(t, ed25519.Verify(signerPub, c.Permissions, c.Signatures[0].Signature))
}
