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

package federation

import (
	"context"
	"errors"
	"time"

	zmq "github.com/pebbe/zmq4"

	"github.com/rtkcaster/caster/pkg/casterclient"
	"github.com/rtkcaster/caster/pkg/log"
	"github.com/rtkcaster/caster/pkg/private/serrors"
	"github.com/rtkcaster/caster/pkg/wire"
)

var (
	// ErrUnreachable is returned when a peer does not answer in time.
	ErrUnreachable = casterclient.ErrUnreachable
	// ErrRefused is returned when the stream worker rejects a proxy request.
	ErrRefused = errors.New("proxy request refused")
)

// Manager links and unlinks remote casters.
type Manager struct {
	// Control is the proxy control endpoint of the local stream worker.
	Control string
	// Loopback is the endpoint on which the stream worker accepts
	// synthesized notifications.
	Loopback string
	// Settle is the time granted to new subscriptions to propagate before
	// the remote roster is fetched.
	Settle time.Duration
	// Timeout bounds every remote call.
	Timeout time.Duration
}

// AddProxy subscribes the stream worker to the remote caster's publish
// channels and announces its current roster through the loopback channel.
// If the roster cannot be fetched or announced, the subscription is rolled
// back.
func (m *Manager) AddProxy(ctx context.Context, eps wire.ProxyEndpoints) error {
	logger := log.FromCtx(ctx)
	if err := m.control(wire.ProxyAdd, eps); err != nil {
		return err
	}
	select {
	case <-time.After(m.Settle):
	case <-ctx.Done():
		m.rollback(logger, eps)
		return ctx.Err()
	}
	reply, err := casterclient.Query(eps.Query, &wire.QueryRequest{}, m.Timeout)
	if err != nil {
		m.rollback(logger, eps)
		return serrors.Wrap("fetching remote roster", err, "endpoint", eps.Query)
	}
	if err := m.announce(reply); err != nil {
		m.rollback(logger, eps)
		return err
	}
	logger.Info("Linked remote caster", "caster_id", reply.CasterID,
		"stations", len(reply.Stations), "publish", eps.Publish)
	return nil
}

// RemoveProxy unsubscribes from the remote caster. Mirrored stations age out.
func (m *Manager) RemoveProxy(ctx context.Context, eps wire.ProxyEndpoints) error {
	if err := m.control(wire.ProxyRemove, eps); err != nil {
		return err
	}
	log.FromCtx(ctx).Info("Unlinked remote caster", "publish", eps.Publish)
	return nil
}

func (m *Manager) rollback(logger log.Logger, eps wire.ProxyEndpoints) {
	if err := m.control(wire.ProxyRemove, eps); err != nil {
		logger.Error("Failed to roll back subscription", "err", err)
	}
}

func (m *Manager) control(op wire.ProxyOp, eps wire.ProxyEndpoints) error {
	admin := &casterclient.ProxyAdmin{Endpoint: m.Control, Timeout: m.Timeout}
	call := admin.Add
	if op == wire.ProxyRemove {
		call = admin.Remove
	}
	err := call(eps)
	if reason := casterclient.Reason(err); reason != wire.FailureNone {
		return serrors.JoinNoStack(ErrRefused, err, "reason", reason)
	}
	return err
}

// announce pushes a new-station notification for every remote station. The
// frames carry the remote identity, exactly like notifications received from
// the remote caster.
func (m *Manager) announce(reply *wire.QueryReply) error {
	sock, err := zmq.NewSocket(zmq.PUSH)
	if err != nil {
		return serrors.Wrap("creating loopback socket", err)
	}
	defer sock.Close()
	if err := sock.SetLinger(m.Timeout); err != nil {
		return serrors.Wrap("setting linger", err)
	}
	if err := sock.SetSndtimeo(m.Timeout); err != nil {
		return serrors.Wrap("setting send timeout", err)
	}
	if err := sock.Connect(m.Loopback); err != nil {
		return serrors.Wrap("connecting loopback", err, "endpoint", m.Loopback)
	}
	for _, s := range reply.Stations {
		n := wire.NewStationNotification(s)
		frame := append(wire.AppendPrefix(nil, reply.CasterID, s.StreamID), n.Marshal()...)
		if _, err := sock.SendBytes(frame, 0); err != nil {
			return serrors.Wrap("announcing remote station", err, "stream_id", s.StreamID)
		}
	}
	return nil
}
