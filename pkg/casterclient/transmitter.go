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

	zmq "github.com/pebbe/zmq4"
	"golang.org/x/crypto/nacl/sign"

	"github.com/rtkcaster/caster/pkg/private/serrors"
	"github.com/rtkcaster/caster/pkg/wire"
)

// NewCredentials returns credentials for the connection key pub, valid until
// the given time and signed by every signer.
func NewCredentials(pub ed25519.PublicKey, validUntil time.Time,
	signers ...ed25519.PrivateKey) *wire.Credentials {

	perms := (&wire.Permissions{
		PublicKey:  append([]byte(nil), pub...),
		ValidUntil: validUntil.Unix(),
	}).Marshal()
	c := &wire.Credentials{Permissions: perms}
	for _, s := range signers {
		c.Signatures = append(c.Signatures, wire.Signature{
			PublicKey: append([]byte(nil), s.Public().(ed25519.PublicKey)...),
			Signature: ed25519.Sign(s, perms),
		})
	}
	return c
}

// Transmitter registers a basestation with a caster and streams its data.
type Transmitter struct {
	sock    *zmq.Socket
	timeout time.Duration
	// key signs payload frames of authenticated sessions.
	key *[64]byte

	casterID int64
	streamID int64
}

// NewTransmitter connects to the registration endpoint of a caster.
func NewTransmitter(endpoint string, timeout time.Duration) (*Transmitter, error) {
	sock, err := zmq.NewSocket(zmq.DEALER)
	if err != nil {
		return nil, serrors.Wrap("creating transmitter socket", err)
	}
	t := &Transmitter{sock: sock, timeout: timeoutOrDefault(timeout)}
	if err := t.init(endpoint); err != nil {
		sock.Close()
		return nil, err
	}
	return t, nil
}

func (t *Transmitter) init(endpoint string) error {
	if err := t.sock.SetLinger(t.timeout); err != nil {
		return serrors.Wrap("setting linger", err)
	}
	if err := t.sock.SetRcvtimeo(t.timeout); err != nil {
		return serrors.Wrap("setting receive timeout", err)
	}
	if err := t.sock.SetSndtimeo(t.timeout); err != nil {
		return serrors.Wrap("setting send timeout", err)
	}
	if err := t.sock.Connect(endpoint); err != nil {
		return serrors.Wrap("connecting", err, "endpoint", endpoint)
	}
	return nil
}

// Register registers station as a community basestation.
func (t *Transmitter) Register(station *wire.StationInfo) error {
	return t.register(&wire.RegistrationRequest{Station: *station})
}

// RegisterAuthenticated registers station with credentials for the
// connection key of key. Subsequent frames are signed with key.
func (t *Transmitter) RegisterAuthenticated(station *wire.StationInfo,
	creds *wire.Credentials, key ed25519.PrivateKey) error {

	if len(key) != ed25519.PrivateKeySize {
		return serrors.New("invalid connection key", "len", len(key))
	}
	if err := t.register(&wire.RegistrationRequest{
		Station:     *station,
		Credentials: creds,
	}); err != nil {
		return err
	}
	t.key = (*[64]byte)(append([]byte(nil), key...))
	return nil
}

func (t *Transmitter) register(req *wire.RegistrationRequest) error {
	if t.streamID != 0 {
		return serrors.New("already registered", "stream_id", t.streamID)
	}
	if _, err := t.sock.SendBytes(req.Marshal(), 0); err != nil {
		return serrors.Wrap("sending registration", err)
	}
	raw, err := t.sock.RecvBytes(0)
	if err != nil {
		if isTimeout(err) {
			return serrors.JoinNoStack(ErrUnreachable, nil, "detail", "no registration reply")
		}
		return serrors.Wrap("receiving registration reply", err)
	}
	var rep wire.RegistrationReply
	if err := rep.Unmarshal(raw); err != nil {
		return serrors.Wrap("decoding registration reply", err)
	}
	if !rep.Succeeded {
		return &RejectedError{Reason: rep.Reason}
	}
	t.casterID, t.streamID = rep.CasterID, rep.StreamID
	return nil
}

// CasterID returns the ID of the caster the transmitter is registered with.
func (t *Transmitter) CasterID() int64 {
	return t.casterID
}

// StreamID returns the stream ID assigned at registration.
func (t *Transmitter) StreamID() int64 {
	return t.streamID
}

// Send transmits one payload frame. Payloads must not be empty.
func (t *Transmitter) Send(payload []byte) error {
	if len(payload) == 0 {
		return serrors.New("empty payload")
	}
	return t.send(payload)
}

// Deregister ends the session. The transmitter can not be reused.
func (t *Transmitter) Deregister() error {
	if err := t.send(nil); err != nil {
		return err
	}
	t.streamID = 0
	return nil
}

func (t *Transmitter) send(payload []byte) error {
	if t.streamID == 0 {
		return serrors.New("not registered")
	}
	frame := payload
	if t.key != nil {
		frame = sign.Sign(nil, payload, t.key)
	}
	if _, err := t.sock.SendBytes(frame, 0); err != nil {
		return serrors.Wrap("sending frame", err)
	}
	return nil
}

// Close closes the socket. Pending frames are flushed for at most the
// timeout.
func (t *Transmitter) Close() error {
	return t.sock.Close()
}
