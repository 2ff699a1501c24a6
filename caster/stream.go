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
	"crypto/ed25519"
	"errors"
	"time"

	zmq "github.com/pebbe/zmq4"
	"golang.org/x/crypto/nacl/sign"

	"github.com/rtkcaster/caster/caster/config"
	"github.com/rtkcaster/caster/caster/event"
	"github.com/rtkcaster/caster/caster/federation"
	"github.com/rtkcaster/caster/caster/registry"
	"github.com/rtkcaster/caster/caster/storectl"
	"github.com/rtkcaster/caster/pkg/log"
	"github.com/rtkcaster/caster/pkg/metrics"
	"github.com/rtkcaster/caster/pkg/private/prom"
	"github.com/rtkcaster/caster/pkg/private/serrors"
	"github.com/rtkcaster/caster/pkg/wire"
	"github.com/rtkcaster/caster/private/reactor"
)

// link identifies the subscription to one remote caster.
type link struct {
	publish string
	notify  string
}

// streamWorker registers transmitters, forwards their frames, manages keys
// and mirrors remote casters. It owns the registry and the mirror.
type streamWorker struct {
	id           int64
	mgmtKey      *[32]byte
	keySkew      time.Duration
	proxyTimeout time.Duration
	metrics      *Metrics
	logger       log.Logger

	reactor  *reactor.Reactor[event.Event]
	registry *registry.Registry
	mirror   *federation.Mirror
	store    *storectl.Client

	clientPub *zmq.Socket
	proxyPub  *zmq.Socket
	notifyPub *zmq.Socket
	// updates and notifications subscribe to remote casters.
	updates       *zmq.Socket
	notifications *zmq.Socket
	links         map[link]struct{}

	nextID  int64
	classes map[int64]wire.StationClass
}

func newStreamWorker(cfg *config.Config, eps *config.Endpoints, m *Metrics,
	logger log.Logger) (_ *streamWorker, err error) {

	id := cfg.General.ID
	w := &streamWorker{
		id:           id,
		keySkew:      cfg.Timeouts.KeySkew.Duration,
		proxyTimeout: cfg.Timeouts.ProxyStream.Duration,
		metrics:      m,
		logger:       logger.New("worker", "stream"),
		mirror:       federation.NewMirror(),
		links:        make(map[link]struct{}),
		nextID:       1,
		classes:      make(map[int64]wire.StationClass),
	}
	pub, err := cfg.General.PublicKey()
	if err != nil {
		return nil, err
	}
	if pub != nil {
		w.mgmtKey = (*[32]byte)(pub)
	}
	w.reactor, err = reactor.New(reactor.Config[event.Event]{
		Name:    "stream",
		Threads: m.Threads,
		OnEvent: w.handleEvent,
		Logger:  w.logger,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			w.close()
		}
	}()
	w.registry = registry.New(registry.Config{
		Scheduler:         w.reactor,
		Sink:              w,
		ConnectionTimeout: cfg.Timeouts.Connection.Duration,
		Now:               w.reactor.Now,
		Logger:            w.logger,
	})

	if w.clientPub, eps.ClientPublish, err = bind(zmq.PUB, cfg.Endpoints.ClientPublish,
		internal(id, "frames")); err != nil {
		return nil, err
	}
	if w.proxyPub, eps.ProxyPublish, err = bind(zmq.PUB, cfg.Endpoints.ProxyPublish); err != nil {
		return nil, err
	}
	if w.notifyPub, eps.Notifications, err = bind(zmq.PUB, cfg.Endpoints.Notifications,
		internal(id, "notify")); err != nil {
		return nil, err
	}

	add := func(name string, sock *zmq.Socket, h reactor.Handler) error {
		if err := w.reactor.AddChannel(name, sock, h); err != nil {
			sock.Close()
			return err
		}
		return nil
	}
	listen := func(name string, typ zmq.Type, h reactor.Handler,
		endpoints ...string) (string, error) {

		sock, resolved, err := bind(typ, endpoints...)
		if err != nil {
			return "", err
		}
		return resolved, add(name, sock, h)
	}
	if eps.Registration, err = listen("registration", zmq.ROUTER, w.handleRegistration,
		cfg.Endpoints.Registration); err != nil {
		return nil, err
	}
	if eps.KeyManagement, err = listen("keys", zmq.ROUTER, w.handleKeys,
		cfg.Endpoints.KeyManagement); err != nil {
		return nil, err
	}
	if eps.ProxyControl, err = listen("proxy", zmq.ROUTER, w.handleProxy,
		cfg.Endpoints.ProxyControl, internal(id, "proxy")); err != nil {
		return nil, err
	}
	if _, err = listen("loopback", zmq.PULL, w.handleRemoteNotification,
		internal(id, "loopback")); err != nil {
		return nil, err
	}
	if w.updates, err = subscriber(); err != nil {
		return nil, err
	}
	if err := add("remote-updates", w.updates, w.handleRemoteUpdate); err != nil {
		return nil, err
	}
	if w.notifications, err = subscriber(); err != nil {
		return nil, err
	}
	if err := add("remote-notifications", w.notifications,
		w.handleRemoteNotification); err != nil {
		return nil, err
	}
	if w.store, err = storectl.Dial(storectl.Endpoint(id)); err != nil {
		return nil, err
	}
	if err := add("store", w.store.Socket(), storectl.HandleReply); err != nil {
		return nil, err
	}
	return w, nil
}

// close stops the worker and closes all its sockets.
func (w *streamWorker) close() error {
	err := w.reactor.Close()
	closeAll(w.clientPub, w.proxyPub, w.notifyPub)
	return err
}

func (w *streamWorker) handleEvent(ev event.Event) error {
	if ev.Kind == event.ProxyStreamTimeout {
		return w.expireMirror(ev.StreamID)
	}
	err := w.expire(ev)
	w.metrics.exportRegistry(w.registry.Stats())
	return err
}

func (w *streamWorker) expire(ev event.Event) error {
	switch ev.Kind {
	case event.ConnectionTimeout:
		return w.registry.ExpireConnection(ev.Peer)
	case event.ConnectionKeyTimeout:
		return w.registry.ExpireConnectionKey(ev.Key)
	case event.SigningKeyTimeout:
		return w.registry.ExpireSigningKey(ev.Key)
	case event.BlacklistTimeout:
		w.registry.ExpireBlacklistKey(ev.Key)
		return nil
	default:
		return serrors.New("unexpected event", "kind", ev.Kind)
	}
}

func (w *streamWorker) drop(reason string) {
	metrics.CounterInc(metrics.CounterWith(w.metrics.DroppedFrames, prom.LabelReason, reason))
}

// handleRegistration handles the first frame of a peer as registration and
// all subsequent frames as payload.
func (w *streamWorker) handleRegistration(sock *zmq.Socket) (bool, error) {
	msg, err := sock.RecvMessageBytes(0)
	if err != nil {
		return false, serrors.Wrap("receiving registration frame", err)
	}
	if len(msg) != 2 {
		w.drop("framing")
		return false, nil
	}
	peer, payload := string(msg[0]), msg[1]
	if conn, ok := w.registry.Connection(peer); ok {
		return false, w.handlePayload(conn, payload)
	}
	rep, rec, err := w.register(peer, payload)
	if err != nil {
		return false, err
	}
	metrics.CounterInc(metrics.CounterWith(w.metrics.Registrations,
		prom.LabelResult, result(rep.Reason)))
	if _, err := sock.SendMessage(msg[0], rep.Marshal()); err != nil {
		return false, serrors.Wrap("sending registration reply", err)
	}
	if !rep.Succeeded {
		return false, nil
	}
	w.metrics.exportRegistry(w.registry.Stats())
	w.logger.Info("Registered basestation", "stream_id", rec.StreamID, "class", rec.Class,
		"format", rec.Format, "name", rec.Name)
	return false, w.notify(rec.StreamID, wire.NewStationNotification(rec))
}

// register validates a registration request and adds the session. Rejected
// requests have no side effects. The returned error is fatal.
func (w *streamWorker) register(peer string,
	payload []byte) (*wire.RegistrationReply, *wire.StationInfo, error) {

	logger := w.logger.New("peer", peer)
	failed := func(reason wire.FailureReason, err error) (*wire.RegistrationReply,
		*wire.StationInfo, error) {

		logger.Debug("Rejected registration", "reason", reason, "err", err)
		return &wire.RegistrationReply{Reason: reason}, nil, nil
	}
	var req wire.RegistrationRequest
	if err := req.Unmarshal(payload); err != nil {
		return failed(wire.FailureMalformed, err)
	}
	if !req.HasStation() {
		return failed(wire.FailureMalformed, serrors.New("no station info"))
	}
	if err := validateStation(&req.Station); err != nil {
		return failed(wire.FailureMalformed, err)
	}
	rec := req.Station.Clone()
	rec.CasterID = w.id
	rec.StreamID = w.nextID
	rec.Uptime = 0
	rec.RealUpdateRate = 0
	rec.SigningKeys = nil
	rec.SourcePublicKey = nil

	var conn *registry.Connection
	var err error
	if req.Credentials == nil {
		conn, err = w.registry.AddUnauthenticatedConnection(peer, rec)
	} else {
		key, signers, expires, reason, verr := w.verifyCredentials(req.Credentials)
		if reason != wire.FailureNone {
			return failed(reason, verr)
		}
		if _, err := w.registry.AddConnectionKey(key, expires, signers); err != nil {
			switch {
			case errors.Is(err, registry.ErrExpired):
				return failed(wire.FailureCredentialsExpired, err)
			case errors.Is(err, registry.ErrBlacklisted):
				return failed(wire.FailureBlacklisted, err)
			case errors.Is(err, registry.ErrUnauthorized):
				return failed(wire.FailureUnauthorized, err)
			default:
				return nil, nil, err
			}
		}
		rec.SourcePublicKey = append([]byte(nil), key[:]...)
		for _, s := range w.registry.Signers(key) {
			rec.SigningKeys = append(rec.SigningKeys, append([]byte(nil), s[:]...))
		}
		conn, err = w.registry.AddAuthenticatedConnection(peer, key, rec)
	}
	if err != nil {
		return nil, nil, serrors.Wrap("adding connection", err, "peer", peer)
	}
	w.nextID++
	w.classes[conn.StreamID] = conn.Class
	metrics.GaugeAdd(w.connections(conn.Class), 1)
	return &wire.RegistrationReply{
		Succeeded: true,
		CasterID:  w.id,
		StreamID:  conn.StreamID,
	}, rec, nil
}

func validateStation(s *wire.StationInfo) error {
	switch {
	case !(s.Latitude >= -90 && s.Latitude <= 90):
		return serrors.New("latitude out of range", "latitude", s.Latitude)
	case !(s.Longitude >= -180 && s.Longitude <= 180):
		return serrors.New("longitude out of range", "longitude", s.Longitude)
	case !(s.ExpectedUpdateRate > 0):
		return serrors.New("expected update rate must be positive",
			"rate", s.ExpectedUpdateRate)
	case !s.Format.Valid():
		return serrors.New("unknown message format", "format", s.Format)
	}
	return nil
}

// verifyCredentials checks every signature over the permissions blob. It
// returns the connection key, the keys that signed it and its expiry.
func (w *streamWorker) verifyCredentials(c *wire.Credentials) (registry.Key, []registry.Key,
	time.Time, wire.FailureReason, error) {

	fail := func(reason wire.FailureReason, err error) (registry.Key, []registry.Key,
		time.Time, wire.FailureReason, error) {

		return registry.Key{}, nil, time.Time{}, reason, err
	}
	var perms wire.Permissions
	if err := perms.Unmarshal(c.Permissions); err != nil {
		return fail(wire.FailureMalformed, err)
	}
	key, err := registry.KeyFromBytes(perms.PublicKey)
	if err != nil {
		return fail(wire.FailureMalformed, err)
	}
	if len(c.Signatures) == 0 {
		return fail(wire.FailureMalformed, serrors.New("no signatures"))
	}
	if perms.ValidUntil == 0 {
		return fail(wire.FailureCredentialsExpired, serrors.New("valid_until not set"))
	}
	expires := time.Unix(perms.ValidUntil, 0)
	if !w.reactor.Now().Before(expires) {
		return fail(wire.FailureCredentialsExpired,
			serrors.New("credentials expired", "valid_until", expires))
	}
	signers := make([]registry.Key, 0, len(c.Signatures))
	for i, s := range c.Signatures {
		signer, err := registry.KeyFromBytes(s.PublicKey)
		if err != nil {
			return fail(wire.FailureMalformed, err)
		}
		if !ed25519.Verify(ed25519.PublicKey(s.PublicKey), c.Permissions, s.Signature) {
			return fail(wire.FailureUnauthorized,
				serrors.New("signature mismatch", "index", i))
		}
		signers = append(signers, signer)
	}
	return key, signers, expires, wire.FailureNone, nil
}

// handlePayload forwards a payload frame of a registered session. Frames of
// authenticated sessions carry a signature, which is stripped. An empty
// payload deregisters the session.
func (w *streamWorker) handlePayload(conn *registry.Connection, payload []byte) error {
	data := payload
	if conn.Authenticated() {
		opened, ok := sign.Open(nil, payload, (*[32]byte)(conn.Key))
		if !ok {
			w.drop("signature")
			return nil
		}
		data = opened
	}
	if len(data) == 0 {
		w.logger.Info("Deregistering basestation", "stream_id", conn.StreamID)
		err := w.registry.RemoveConnection(conn.Peer, wire.RemovedDeregistered)
		w.metrics.exportRegistry(w.registry.Stats())
		return err
	}
	w.registry.Touch(conn.Peer)
	return w.forward(conn.StreamID, data, sourceDirect)
}

// forward publishes a payload frame under the local caster ID.
func (w *streamWorker) forward(streamID int64, data []byte, source string) error {
	frame := wire.Frame(w.id, streamID, data)
	for _, pub := range []*zmq.Socket{w.clientPub, w.proxyPub} {
		if _, err := pub.SendBytes(frame, zmq.DONTWAIT); err != nil {
			return serrors.Wrap("publishing frame", err, "stream_id", streamID)
		}
	}
	metrics.CounterInc(metrics.CounterWith(w.metrics.ForwardedFrames, prom.LabelSource, source))
	metrics.CounterAdd(metrics.CounterWith(w.metrics.ForwardedBytes, prom.LabelSource, source),
		float64(len(data)))
	return nil
}

// notify publishes a notification about a local stream.
func (w *streamWorker) notify(streamID int64, n *wire.Notification) error {
	frame := append(wire.AppendPrefix(nil, w.id, streamID), n.Marshal()...)
	if _, err := w.notifyPub.SendBytes(frame, zmq.DONTWAIT); err != nil {
		return serrors.Wrap("publishing notification", err, "stream_id", streamID)
	}
	return nil
}

func (w *streamWorker) connections(c wire.StationClass) metrics.Gauge {
	return metrics.GaugeWith(w.metrics.Connections, prom.LabelClass, classLabel(c))
}

// Insert stores the record of a new session.
func (w *streamWorker) Insert(rec *wire.StationInfo) error {
	return w.store.Insert(rec, w.reactor.Now())
}

// Remove deletes the record of a removed session and announces the removal.
func (w *streamWorker) Remove(streamID int64, reason wire.RemovalReason) error {
	if err := w.store.Delete(streamID); err != nil {
		return err
	}
	if class, ok := w.classes[streamID]; ok {
		metrics.GaugeAdd(w.connections(class), -1)
		delete(w.classes, streamID)
	}
	w.logger.Info("Removed basestation", "stream_id", streamID, "reason", reason)
	return w.notify(streamID, wire.RemovedNotification(reason))
}

// handleProxy links or unlinks a remote caster.
func (w *streamWorker) handleProxy(sock *zmq.Socket) (bool, error) {
	req, ok, err := recvRequest(sock)
	if err != nil || !ok {
		return false, err
	}
	return false, reply(sock, req, w.proxy(req.body).Marshal())
}

func (w *streamWorker) proxy(body []byte) *wire.Ack {
	var req wire.ProxyRequest
	if err := req.Unmarshal(body); err != nil {
		return wire.Failed(wire.FailureMalformed, err.Error())
	}
	eps := req.Endpoints
	if eps.Publish == "" || eps.Notify == "" {
		return wire.Failed(wire.FailureMalformed, "publish and notify endpoints required")
	}
	l := link{publish: eps.Publish, notify: eps.Notify}
	_, linked := w.links[l]
	switch req.Op {
	case wire.ProxyAdd:
		if linked {
			return &wire.Ack{Succeeded: true}
		}
		if err := w.updates.Connect(eps.Publish); err != nil {
			return wire.Failed(wire.FailureMalformed, err.Error())
		}
		if err := w.notifications.Connect(eps.Notify); err != nil {
			if derr := w.updates.Disconnect(eps.Publish); derr != nil {
				w.logger.Error("Failed to disconnect", "endpoint", eps.Publish, "err", derr)
			}
			return wire.Failed(wire.FailureMalformed, err.Error())
		}
		w.links[l] = struct{}{}
		w.logger.Info("Subscribed to remote caster", "publish", eps.Publish,
			"notify", eps.Notify)
	case wire.ProxyRemove:
		if !linked {
			return &wire.Ack{Succeeded: true}
		}
		if err := w.updates.Disconnect(eps.Publish); err != nil {
			w.logger.Error("Failed to disconnect", "endpoint", eps.Publish, "err", err)
		}
		if err := w.notifications.Disconnect(eps.Notify); err != nil {
			w.logger.Error("Failed to disconnect", "endpoint", eps.Notify, "err", err)
		}
		delete(w.links, l)
		w.logger.Info("Unsubscribed from remote caster", "publish", eps.Publish,
			"notify", eps.Notify)
	}
	return &wire.Ack{Succeeded: true}
}

// handleRemoteNotification mirrors announcements of remote casters. It also
// serves the loopback channel, which carries the same frames.
func (w *streamWorker) handleRemoteNotification(sock *zmq.Socket) (bool, error) {
	frame, err := sock.RecvBytes(0)
	if err != nil {
		return false, serrors.Wrap("receiving remote notification", err)
	}
	casterID, streamID, body, err := wire.SplitPrefix(frame)
	if err != nil {
		w.drop("malformed")
		return false, nil
	}
	if casterID == w.id {
		w.drop("own")
		return false, nil
	}
	var n wire.Notification
	if err := n.Unmarshal(body); err != nil {
		w.drop("malformed")
		return false, nil
	}
	remote := federation.Remote{CasterID: casterID, StreamID: streamID}
	switch n.Kind {
	case wire.NotificationNewStation:
		return false, w.mirrorStation(remote, n.Station)
	case wire.NotificationRemoved:
		local, ok := w.mirror.Lookup(remote)
		if !ok {
			return false, nil
		}
		return false, w.unmirror(local, wire.RemovedRemote)
	}
	return false, nil
}

// mirrorStation stores a remote station under a local stream ID. A station
// that is already mirrored is overwritten.
func (w *streamWorker) mirrorStation(remote federation.Remote, s *wire.StationInfo) error {
	now := w.reactor.Now()
	rec := s.Clone()
	rec.CasterID = w.id
	start := now.Add(-time.Duration(s.Uptime) * time.Second)
	if local, ok := w.mirror.Lookup(remote); ok {
		rec.StreamID = local
		w.mirror.Touch(local, now)
		return w.store.Replace(rec, start)
	}
	local := w.nextID
	w.nextID++
	rec.StreamID = local
	w.mirror.Add(remote, local, now)
	if err := w.store.Insert(rec, start); err != nil {
		return err
	}
	w.reactor.Schedule(now.Add(w.proxyTimeout), event.ProxyStream(local))
	metrics.GaugeSet(w.metrics.MirroredStreams, float64(w.mirror.Len()))
	w.logger.Info("Mirroring remote basestation", "stream_id", local,
		"remote_caster_id", remote.CasterID, "remote_stream_id", remote.StreamID)
	return w.notify(local, wire.NewStationNotification(rec))
}

func (w *streamWorker) unmirror(local int64, reason wire.RemovalReason) error {
	remote, ok := w.mirror.Remove(local)
	if !ok {
		return nil
	}
	if err := w.store.Delete(local); err != nil {
		return err
	}
	metrics.GaugeSet(w.metrics.MirroredStreams, float64(w.mirror.Len()))
	w.logger.Info("Removed mirrored basestation", "stream_id", local,
		"remote_caster_id", remote.CasterID, "remote_stream_id", remote.StreamID,
		"reason", reason)
	return w.notify(local, wire.RemovedNotification(reason))
}

// handleRemoteUpdate relabels a payload frame of a mirrored stream and
// publishes it.
func (w *streamWorker) handleRemoteUpdate(sock *zmq.Socket) (bool, error) {
	frame, err := sock.RecvBytes(0)
	if err != nil {
		return false, serrors.Wrap("receiving remote update", err)
	}
	casterID, streamID, payload, err := wire.SplitPrefix(frame)
	if err != nil {
		w.drop("malformed")
		return false, nil
	}
	local, ok := w.mirror.Lookup(federation.Remote{CasterID: casterID, StreamID: streamID})
	if !ok {
		w.drop("unknown_stream")
		return false, nil
	}
	w.mirror.Touch(local, w.reactor.Now())
	return false, w.forward(local, payload, sourceMirror)
}

func (w *streamWorker) expireMirror(local int64) error {
	deadline, ok := w.mirror.Deadline(local, w.proxyTimeout)
	if !ok {
		return nil
	}
	if w.reactor.Now().Before(deadline) {
		w.reactor.Schedule(deadline, event.ProxyStream(local))
		return nil
	}
	return w.unmirror(local, wire.RemovedTimedOut)
}
