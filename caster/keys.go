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
	"encoding/hex"
	"slices"
	"time"

	zmq "github.com/pebbe/zmq4"
	"golang.org/x/crypto/nacl/sign"

	"github.com/rtkcaster/caster/caster/registry"
	"github.com/rtkcaster/caster/pkg/metrics"
	"github.com/rtkcaster/caster/pkg/private/prom"
	"github.com/rtkcaster/caster/pkg/private/serrors"
	"github.com/rtkcaster/caster/pkg/wire"
)

// MaxKeyGrants is the maximum number of grants in one key batch.
const MaxKeyGrants = 1024

type grant struct {
	key     registry.Key
	expires time.Time
}

// handleKeys applies signed key batches. A batch is applied completely or not
// at all.
func (w *streamWorker) handleKeys(sock *zmq.Socket) (bool, error) {
	req, ok, err := recvRequest(sock)
	if err != nil || !ok {
		return false, err
	}
	ack, err := w.applyKeys(req.body)
	if err != nil {
		return false, err
	}
	w.metrics.exportRegistry(w.registry.Stats())
	metrics.CounterInc(metrics.CounterWith(w.metrics.KeyRequests,
		prom.LabelResult, result(ack.Reason)))
	return false, reply(sock, req, ack.Marshal())
}

// applyKeys validates the whole batch before it touches the registry. Errors
// that occur while applying a validated batch are fatal.
func (w *streamWorker) applyKeys(body []byte) (*wire.Ack, error) {
	var req wire.KeyManagementRequest
	if err := req.Unmarshal(body); err != nil {
		return wire.Failed(wire.FailureMalformed, err.Error()), nil
	}
	if w.mgmtKey == nil {
		return wire.Failed(wire.FailureUnauthorized, "key management disabled"), nil
	}
	raw, ok := sign.Open(nil, req.SignedBatch, w.mgmtKey)
	if !ok {
		return wire.Failed(wire.FailureUnauthorized, "invalid batch signature"), nil
	}
	var batch wire.KeyBatch
	if err := batch.Unmarshal(raw); err != nil {
		return wire.Failed(wire.FailureMalformed, err.Error()), nil
	}
	if batch.Len() > MaxKeyGrants {
		return wire.Failed(wire.FailureOversized, "too many grants"), nil
	}
	now := w.reactor.Now()
	if skew := now.Sub(time.Unix(batch.IssuedAt, 0)).Abs(); batch.IssuedAt == 0 ||
		skew > w.keySkew {

		return wire.Failed(wire.FailureUnauthorized, "batch outside of accepted time window"), nil
	}
	official, err := grants(batch.Official, now)
	if err != nil {
		return wire.Failed(wire.FailureMalformed, err.Error()), nil
	}
	community, err := grants(batch.Community, now)
	if err != nil {
		return wire.Failed(wire.FailureMalformed, err.Error()), nil
	}
	blacklist, err := grants(batch.Blacklist, now)
	if err != nil {
		return wire.Failed(wire.FailureMalformed, err.Error()), nil
	}
	for _, g := range slices.Concat(official, community) {
		if w.registry.IsBlacklisted(g.key) {
			return wire.Failed(wire.FailureBlacklisted, hex.EncodeToString(g.key[:])), nil
		}
	}

	for _, g := range official {
		if err := w.registry.AddSigningKey(g.key, wire.ClassOfficial, g.expires); err != nil {
			return nil, serrors.Wrap("adding official key", err)
		}
	}
	for _, g := range community {
		if err := w.registry.AddSigningKey(g.key, wire.ClassRegisteredCommunity,
			g.expires); err != nil {
			return nil, serrors.Wrap("adding community key", err)
		}
	}
	for _, g := range blacklist {
		if err := w.registry.AddBlacklistKey(g.key, g.expires); err != nil {
			return nil, serrors.Wrap("blacklisting key", err)
		}
	}
	w.logger.Info("Applied key batch", "official", len(official),
		"community", len(community), "blacklist", len(blacklist))
	return &wire.Ack{Succeeded: true}, nil
}

// grants decodes key grants. A zero expiry never expires; grants that have
// already expired are rejected.
func grants(gs []wire.KeyGrant, now time.Time) ([]grant, error) {
	out := make([]grant, 0, len(gs))
	for i, g := range gs {
		key, err := registry.KeyFromBytes(g.PublicKey)
		if err != nil {
			return nil, serrors.Wrap("decoding grant", err, "index", i)
		}
		var expires time.Time
		if g.Expires != 0 {
			expires = time.Unix(g.Expires, 0)
			if !now.Before(expires) {
				return nil, serrors.New("grant expired", "index", i, "expires", expires)
			}
		}
		out = append(out, grant{key: key, expires: expires})
	}
	return out, nil
}
