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

// Package registry tracks transmitter sessions and the keys that authorize
// them.
//
// Trust flows from signing keys to connection keys to connections. A
// connection key is backed by one or more signing keys of the same class and
// lives only as long as at least one backer does. Removing a signing key
// cascades to every connection key it solely backs and from there to every
// connection authenticated with such a key.
//
// The registry is not safe for concurrent use. It is owned by the stream
// registration worker, whose event loop also delivers the expiry events the
// registry schedules.
package registry

import (
	"errors"
	"time"

	"github.com/rtkcaster/caster/caster/event"
	"github.com/rtkcaster/caster/pkg/log"
	"github.com/rtkcaster/caster/pkg/private/serrors"
	"github.com/rtkcaster/caster/pkg/wire"
)

var (
	// ErrExpired is returned when adding a key whose expiry has passed.
	ErrExpired = errors.New("key expired")
	// ErrBlacklisted is returned when adding a blacklisted key.
	ErrBlacklisted = errors.New("key blacklisted")
	// ErrUnauthorized is returned when no trusted signing key backs a
	// connection key.
	ErrUnauthorized = errors.New("no trusted signer")
	// ErrDuplicatePeer is returned when adding a second session for a peer.
	ErrDuplicatePeer = errors.New("peer already connected")
	// ErrInvalidClass is returned when a signing key is added with the
	// community class.
	ErrInvalidClass = errors.New("invalid signing key class")
)

// Key is an ed25519 public key.
type Key [32]byte

// KeyFromBytes converts a raw public key.
func KeyFromBytes(b []byte) (Key, error) {
	var k Key
	if len(b) != len(k) {
		return k, serrors.New("invalid key length", "expected", len(k), "actual", len(b))
	}
	copy(k[:], b)
	return k, nil
}

// Scheduler arms timed events. It is satisfied by the worker's reactor.
type Scheduler interface {
	Schedule(at time.Time, ev event.Event)
}

// Sink persists station records and announces removals. Errors are fatal to
// the owning worker.
type Sink interface {
	// Insert stores a new station record.
	Insert(rec *wire.StationInfo) error
	// Remove deletes the record and broadcasts its removal.
	Remove(streamID int64, reason wire.RemovalReason) error
}

// Connection is the state of a transmitter session.
type Connection struct {
	Peer     string
	StreamID int64
	Class    wire.StationClass
	LastSeen time.Time
	// Key is the connection key of an authenticated session.
	Key *Key
}

// Authenticated reports whether the session registered with credentials.
func (c *Connection) Authenticated() bool {
	return c.Key != nil
}

type signingKey struct {
	class   wire.StationClass
	expires time.Time
	backs   map[Key]struct{}
}

type connectionKey struct {
	class   wire.StationClass
	expires time.Time
	signers map[Key]struct{}
	conns   map[string]struct{}
}

// Config configures a Registry.
type Config struct {
	Scheduler Scheduler
	Sink      Sink
	// ConnectionTimeout is the silence after which a session is removed.
	ConnectionTimeout time.Duration
	// Now defaults to time.Now.
	Now    func() time.Time
	Logger log.Logger
}

// Registry holds sessions, connection keys, signing keys and the blacklist.
type Registry struct {
	sched   Scheduler
	sink    Sink
	timeout time.Duration
	now     func() time.Time
	logger  log.Logger

	signing   map[Key]*signingKey
	connKeys  map[Key]*connectionKey
	blacklist map[Key]time.Time
	conns     map[string]*Connection
	byStream  map[int64]string
}

// New creates an empty registry.
func New(cfg Config) *Registry {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New("component", "registry")
	}
	return &Registry{
		sched:     cfg.Scheduler,
		sink:      cfg.Sink,
		timeout:   cfg.ConnectionTimeout,
		now:       cfg.Now,
		logger:    cfg.Logger,
		signing:   make(map[Key]*signingKey),
		connKeys:  make(map[Key]*connectionKey),
		blacklist: make(map[Key]time.Time),
		conns:     make(map[string]*Connection),
		byStream:  make(map[int64]string),
	}
}

func expired(expires, now time.Time) bool {
	return !expires.IsZero() && !now.Before(expires)
}

// AddSigningKey trusts key for the given class until expires. A zero expiry
// never expires. Re-adding a live key is a no-op, whatever the class. A key
// that expired but whose timeout has not fired yet is renewed in place if the
// class is unchanged; otherwise it is removed with its dependents first, so
// that no connection key keeps the class of the old entry.
func (r *Registry) AddSigningKey(key Key, class wire.StationClass, expires time.Time) error {
	if class != wire.ClassOfficial && class != wire.ClassRegisteredCommunity {
		return serrors.JoinNoStack(ErrInvalidClass, nil, "class", class)
	}
	now := r.now()
	if expired(expires, now) {
		return serrors.JoinNoStack(ErrExpired, nil, "expires", expires)
	}
	if r.IsBlacklisted(key) {
		return ErrBlacklisted
	}
	if sk, ok := r.signing[key]; ok {
		if !expired(sk.expires, now) {
			return nil
		}
		if sk.class == class {
			sk.expires = expires
			if !expires.IsZero() {
				r.sched.Schedule(expires, event.SigningKey(key))
			}
			return nil
		}
		if err := r.RemoveSigningKey(key); err != nil {
			return err
		}
	}
	r.signing[key] = &signingKey{
		class:   class,
		expires: expires,
		backs:   make(map[Key]struct{}),
	}
	if !expires.IsZero() {
		r.sched.Schedule(expires, event.SigningKey(key))
	}
	return nil
}

// RemoveSigningKey drops key from the trust sets. Connection keys solely
// backed by it are removed with their sessions. Removing an unknown key is a
// no-op.
func (r *Registry) RemoveSigningKey(key Key) error {
	sk, ok := r.signing[key]
	if !ok {
		return nil
	}
	delete(r.signing, key)
	for ck := range sk.backs {
		c, ok := r.connKeys[ck]
		if !ok {
			continue
		}
		delete(c.signers, key)
		if len(c.signers) == 0 {
			if err := r.RemoveConnectionKey(ck); err != nil {
				return err
			}
		}
	}
	return nil
}

// AddBlacklistKey removes key from the trust sets and bars it until expires.
func (r *Registry) AddBlacklistKey(key Key, expires time.Time) error {
	if expired(expires, r.now()) {
		return serrors.JoinNoStack(ErrExpired, nil, "expires", expires)
	}
	if err := r.RemoveSigningKey(key); err != nil {
		return err
	}
	if err := r.RemoveConnectionKey(key); err != nil {
		return err
	}
	r.blacklist[key] = expires
	if !expires.IsZero() {
		r.sched.Schedule(expires, event.Blacklist(key))
	}
	return nil
}

// IsBlacklisted reports whether key is currently barred.
func (r *Registry) IsBlacklisted(key Key) bool {
	exp, ok := r.blacklist[key]
	return ok && !expired(exp, r.now())
}

// AddConnectionKey accepts key if it is signed by at least one trusted
// signing key. Official signers take priority: if any signer is official,
// only the official signers back the key. The class of the backing signers is
// returned. Adding a live key again returns its class and changes nothing.
func (r *Registry) AddConnectionKey(key Key, expires time.Time,
	signers []Key) (wire.StationClass, error) {

	now := r.now()
	if expired(expires, now) {
		return 0, serrors.JoinNoStack(ErrExpired, nil, "expires", expires)
	}
	if r.IsBlacklisted(key) {
		return 0, ErrBlacklisted
	}
	if c, ok := r.connKeys[key]; ok && !expired(c.expires, now) {
		return c.class, nil
	}
	var official, community []Key
	for _, s := range signers {
		sk, ok := r.signing[s]
		if !ok || expired(sk.expires, now) {
			continue
		}
		switch sk.class {
		case wire.ClassOfficial:
			official = append(official, s)
		case wire.ClassRegisteredCommunity:
			community = append(community, s)
		}
	}
	backers, class := official, wire.ClassOfficial
	if len(backers) == 0 {
		backers, class = community, wire.ClassRegisteredCommunity
	}
	if len(backers) == 0 {
		return 0, ErrUnauthorized
	}
	c := &connectionKey{
		class:   class,
		expires: expires,
		signers: make(map[Key]struct{}, len(backers)),
		conns:   make(map[string]struct{}),
	}
	if old, ok := r.connKeys[key]; ok {
		// An expired key whose timeout has not fired yet keeps its sessions.
		c.conns = old.conns
		r.unlinkSigners(key, old)
	}
	for _, s := range backers {
		c.signers[s] = struct{}{}
		r.signing[s].backs[key] = struct{}{}
	}
	r.connKeys[key] = c
	if !expires.IsZero() {
		r.sched.Schedule(expires, event.ConnectionKey(key))
	}
	return class, nil
}

// RemoveConnectionKey removes every session authenticated with key, then the
// key itself.
func (r *Registry) RemoveConnectionKey(key Key) error {
	c, ok := r.connKeys[key]
	if !ok {
		return nil
	}
	for peer := range c.conns {
		if err := r.RemoveAuthenticatedConnection(peer, wire.RemovedKeyRevoked); err != nil {
			return err
		}
	}
	r.unlinkSigners(key, c)
	delete(r.connKeys, key)
	return nil
}

func (r *Registry) unlinkSigners(key Key, c *connectionKey) {
	for s := range c.signers {
		if sk, ok := r.signing[s]; ok {
			delete(sk.backs, key)
		}
	}
}

// AddAuthenticatedConnection registers a session that authenticated with key.
// The record is stored with the class of the key.
func (r *Registry) AddAuthenticatedConnection(peer string, key Key,
	rec *wire.StationInfo) (*Connection, error) {

	c, ok := r.connKeys[key]
	if !ok {
		return nil, ErrUnauthorized
	}
	rec.Class = c.class
	k := key
	conn, err := r.addConnection(peer, rec, &k)
	if err != nil {
		return nil, err
	}
	c.conns[peer] = struct{}{}
	return conn, nil
}

// AddUnauthenticatedConnection registers a community session.
func (r *Registry) AddUnauthenticatedConnection(peer string,
	rec *wire.StationInfo) (*Connection, error) {

	rec.Class = wire.ClassCommunity
	return r.addConnection(peer, rec, nil)
}

func (r *Registry) addConnection(peer string, rec *wire.StationInfo,
	key *Key) (*Connection, error) {

	if _, ok := r.conns[peer]; ok {
		return nil, ErrDuplicatePeer
	}
	if err := r.sink.Insert(rec); err != nil {
		return nil, err
	}
	now := r.now()
	conn := &Connection{
		Peer:     peer,
		StreamID: rec.StreamID,
		Class:    rec.Class,
		LastSeen: now,
		Key:      key,
	}
	r.conns[peer] = conn
	r.byStream[rec.StreamID] = peer
	r.sched.Schedule(now.Add(r.timeout), event.Connection(peer))
	return conn, nil
}

// RemoveAuthenticatedConnection removes an authenticated session and its
// record.
func (r *Registry) RemoveAuthenticatedConnection(peer string, reason wire.RemovalReason) error {
	conn, ok := r.conns[peer]
	if !ok || conn.Key == nil {
		return nil
	}
	if c, ok := r.connKeys[*conn.Key]; ok {
		delete(c.conns, peer)
	}
	return r.drop(conn, reason)
}

// RemoveUnauthenticatedConnection removes a community session and its record.
func (r *Registry) RemoveUnauthenticatedConnection(peer string,
	reason wire.RemovalReason) error {

	conn, ok := r.conns[peer]
	if !ok || conn.Key != nil {
		return nil
	}
	return r.drop(conn, reason)
}

// RemoveConnection removes the session of peer, whichever kind it is.
func (r *Registry) RemoveConnection(peer string, reason wire.RemovalReason) error {
	conn, ok := r.conns[peer]
	if !ok {
		return nil
	}
	if conn.Authenticated() {
		return r.RemoveAuthenticatedConnection(peer, reason)
	}
	return r.RemoveUnauthenticatedConnection(peer, reason)
}

func (r *Registry) drop(conn *Connection, reason wire.RemovalReason) error {
	delete(r.conns, conn.Peer)
	delete(r.byStream, conn.StreamID)
	r.logger.Debug("Removing connection", "peer", conn.Peer, "stream_id", conn.StreamID,
		"reason", reason)
	return r.sink.Remove(conn.StreamID, reason)
}

// Touch records traffic from peer.
func (r *Registry) Touch(peer string) (*Connection, bool) {
	conn, ok := r.conns[peer]
	if ok {
		conn.LastSeen = r.now()
	}
	return conn, ok
}

// Connection returns the session of peer.
func (r *Registry) Connection(peer string) (*Connection, bool) {
	conn, ok := r.conns[peer]
	return conn, ok
}

// ConnectionByStream returns the session that owns a stream ID.
func (r *Registry) ConnectionByStream(id int64) (*Connection, bool) {
	peer, ok := r.byStream[id]
	if !ok {
		return nil, false
	}
	return r.Connection(peer)
}

// ExpireConnection handles a connection timeout event. A silent session is
// removed; an active one is checked again one timeout after its last traffic.
func (r *Registry) ExpireConnection(peer string) error {
	conn, ok := r.conns[peer]
	if !ok {
		return nil
	}
	now := r.now()
	if deadline := conn.LastSeen.Add(r.timeout); now.Before(deadline) {
		r.sched.Schedule(deadline, event.Connection(peer))
		return nil
	}
	return r.RemoveConnection(peer, wire.RemovedTimedOut)
}

// ExpireSigningKey handles a signing key timeout event. Events for keys that
// were re-added with a later expiry are ignored.
func (r *Registry) ExpireSigningKey(key Key) error {
	sk, ok := r.signing[key]
	if !ok || !expired(sk.expires, r.now()) {
		return nil
	}
	return r.RemoveSigningKey(key)
}

// ExpireConnectionKey handles a connection key timeout event.
func (r *Registry) ExpireConnectionKey(key Key) error {
	c, ok := r.connKeys[key]
	if !ok || !expired(c.expires, r.now()) {
		return nil
	}
	return r.RemoveConnectionKey(key)
}

// ExpireBlacklistKey handles a blacklist timeout event.
func (r *Registry) ExpireBlacklistKey(key Key) {
	exp, ok := r.blacklist[key]
	if !ok || !expired(exp, r.now()) {
		return
	}
	delete(r.blacklist, key)
}

// Stats summarizes the registry content.
type Stats struct {
	Connections     int
	Authenticated   int
	ConnectionKeys  int
	OfficialKeys    int
	CommunityKeys   int
	BlacklistedKeys int
}

// Stats returns the current registry sizes.
func (r *Registry) Stats() Stats {
	s := Stats{
		Connections:     len(r.conns),
		ConnectionKeys:  len(r.connKeys),
		BlacklistedKeys: len(r.blacklist),
	}
	for _, c := range r.conns {
		if c.Authenticated() {
			s.Authenticated++
		}
	}
	for _, sk := range r.signing {
		if sk.class == wire.ClassOfficial {
			s.OfficialKeys++
		} else {
			s.CommunityKeys++
		}
	}
	return s
}

// Signers returns the signing keys backing a connection key.
func (r *Registry) Signers(key Key) []Key {
	c, ok := r.connKeys[key]
	if !ok {
		return nil
	}
	keys := make([]Key, 0, len(c.signers))
	for s := range c.signers {
		keys = append(keys, s)
	}
	return keys
}

// HasConnectionKey reports whether key is a known connection key.
func (r *Registry) HasConnectionKey(key Key) bool {
	_, ok := r.connKeys[key]
	return ok
}

// HasSigningKey reports whether key is trusted and returns its class.
func (r *Registry) HasSigningKey(key Key) (wire.StationClass, bool) {
	sk, ok := r.signing[key]
	if !ok {
		return 0, false
	}
	return sk.class, true
}
