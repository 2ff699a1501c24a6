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
	"crypto/ed25519"
	"time"

	"golang.org/x/crypto/nacl/sign"

	"github.com/rtkcaster/caster/pkg/private/serrors"
	"github.com/rtkcaster/caster/pkg/wire"
)

// KeyAdmin sends key management batches signed with the management key.
type KeyAdmin struct {
	Endpoint string
	// Key is the private management key.
	Key     ed25519.PrivateKey
	Timeout time.Duration
}

// Apply signs and sends batch. If the batch has no issue time, the current
// time is used.
func (a *KeyAdmin) Apply(batch *wire.KeyBatch) error {
	if len(a.Key) != ed25519.PrivateKeySize {
		return serrors.New("invalid management key", "len", len(a.Key))
	}
	if batch.IssuedAt == 0 {
		b := *batch
		b.IssuedAt = time.Now().Unix()
		batch = &b
	}
	req := &wire.KeyManagementRequest{
		SignedBatch: sign.Sign(nil, batch.Marshal(), (*[64]byte)(a.Key)),
	}
	return callAck(a.Endpoint, req.Marshal(), a.Timeout)
}

// Grant returns a key grant that expires at the given time. A zero time
// never expires.
func Grant(key ed25519.PublicKey, expires time.Time) wire.KeyGrant {
	g := wire.KeyGrant{PublicKey: append([]byte(nil), key...)}
	if !expires.IsZero() {
		g.Expires = expires.Unix()
	}
	return g
}

// ProxyAdmin links and unlinks remote casters through the proxy control
// channel of a caster.
type ProxyAdmin struct {
	Endpoint string
	Timeout  time.Duration
}

// Add subscribes the caster to the remote caster's publish channels.
func (a *ProxyAdmin) Add(eps wire.ProxyEndpoints) error {
	return a.call(wire.ProxyAdd, eps)
}

// Remove unsubscribes the caster from the remote caster.
func (a *ProxyAdmin) Remove(eps wire.ProxyEndpoints) error {
	return a.call(wire.ProxyRemove, eps)
}

func (a *ProxyAdmin) call(op wire.ProxyOp, eps wire.ProxyEndpoints) error {
	req := &wire.ProxyRequest{Op: op, Endpoints: eps}
	if err := callAck(a.Endpoint, req.Marshal(), a.Timeout); err != nil {
		return serrors.Wrap("proxy control", err, "op", op)
	}
	return nil
}
