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

// Package storectl implements the control channel through which workers that
// do not own the station store mutate it.
//
// The owning worker binds a ROUTER socket and applies every command in arrival
// order, which serializes all access to the single database connection.
// Senders use a DEALER socket and do not wait for the reply; their worker
// polls the socket and treats an error reply as fatal.
package storectl

import (
	"context"
	"errors"
	"fmt"
	"time"

	zmq "github.com/pebbe/zmq4"

	"github.com/rtkcaster/caster/caster/store"
	"github.com/rtkcaster/caster/pkg/log"
	"github.com/rtkcaster/caster/pkg/private/serrors"
	"github.com/rtkcaster/caster/pkg/wire"
)

// ErrRejected is returned when the store owner reports a failed command.
var ErrRejected = errors.New("store command rejected")

// Endpoint returns the in-process address of the control channel of a caster.
func Endpoint(casterID int64) string {
	return fmt.Sprintf("inproc://caster-%d-store", casterID)
}

// Store is the part of the station store that commands act on.
type Store interface {
	Store(ctx context.Context, rec *wire.StationInfo, start time.Time) error
	Replace(ctx context.Context, rec *wire.StationInfo, start time.Time) error
	DeleteByID(ctx context.Context, id int64) (int, error)
	Update(ctx context.Context, id int64, field wire.StationField, value any) error
}

// Apply executes cmd on s. Deleting or updating a record that no longer exists
// succeeds: the record may have been removed by another worker in the
// meantime.
func Apply(ctx context.Context, s Store, cmd *wire.StoreCommand) error {
	switch cmd.Op {
	case wire.StoreInsert:
		return s.Store(ctx, cmd.Station, time.Unix(0, cmd.StartTime))
	case wire.StoreReplace:
		return s.Replace(ctx, cmd.Station, time.Unix(0, cmd.StartTime))
	case wire.StoreDelete:
		_, err := s.DeleteByID(ctx, cmd.ID)
		return err
	case wire.StoreUpdate:
		err := s.Update(ctx, cmd.ID, cmd.Field, cmd.Value)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	default:
		return serrors.New("unknown store operation", "op", cmd.Op)
	}
}

// Server answers store commands on the owning worker.
type Server struct {
	Store  Store
	Logger log.Logger
}

// Listen binds the ROUTER socket of the control channel.
func Listen(endpoint string) (*zmq.Socket, error) {
	sock, err := zmq.NewSocket(zmq.ROUTER)
	if err != nil {
		return nil, serrors.Wrap("creating store control socket", err)
	}
	if err := sock.SetLinger(0); err != nil {
		sock.Close()
		return nil, serrors.Wrap("setting linger", err)
	}
	if err := sock.Bind(endpoint); err != nil {
		sock.Close()
		return nil, serrors.Wrap("binding store control socket", err, "endpoint", endpoint)
	}
	return sock, nil
}

// Handle is the reactor handler of the ROUTER socket. It replies to every
// command exactly once. Malformed commands are answered with a failure.
func (s *Server) Handle(sock *zmq.Socket) (bool, error) {
	msg, err := sock.RecvMessageBytes(0)
	if err != nil {
		return false, serrors.Wrap("receiving store command", err)
	}
	if len(msg) != 2 {
		s.Logger.Error("Dropping store command with unexpected framing", "frames", len(msg))
		return false, nil
	}
	id, payload := msg[0], msg[1]
	ack := &wire.Ack{Succeeded: true}
	var cmd wire.StoreCommand
	if err := cmd.Unmarshal(payload); err != nil {
		ack = wire.Failed(wire.FailureMalformed, err.Error())
	} else if err := Apply(context.Background(), s.Store, &cmd); err != nil {
		s.Logger.Error("Store command failed", "op", cmd.Op, "err", err)
		ack = wire.Failed(wire.FailureInternal, err.Error())
	}
	if _, err := sock.SendMessage(id, ack.Marshal()); err != nil {
		return false, serrors.Wrap("replying to store command", err)
	}
	return false, nil
}

// Client sends store commands without waiting for replies.
type Client struct {
	sock *zmq.Socket
}

// Dial connects a DEALER socket to the control channel.
func Dial(endpoint string) (*Client, error) {
	sock, err := zmq.NewSocket(zmq.DEALER)
	if err != nil {
		return nil, serrors.Wrap("creating store control socket", err)
	}
	if err := sock.SetLinger(0); err != nil {
		sock.Close()
		return nil, serrors.Wrap("setting linger", err)
	}
	if err := sock.Connect(endpoint); err != nil {
		sock.Close()
		return nil, serrors.Wrap("connecting store control socket", err, "endpoint", endpoint)
	}
	return &Client{sock: sock}, nil
}

// Socket returns the DEALER socket. The owning worker polls it for replies
// with HandleReply.
func (c *Client) Socket() *zmq.Socket {
	return c.sock
}

func (c *Client) send(cmd *wire.StoreCommand) error {
	if _, err := c.sock.SendBytes(cmd.Marshal(), 0); err != nil {
		return serrors.Wrap("sending store command", err, "op", cmd.Op)
	}
	return nil
}

// Insert stores a new record.
func (c *Client) Insert(rec *wire.StationInfo, start time.Time) error {
	return c.send(&wire.StoreCommand{Op: wire.StoreInsert, Station: rec,
		StartTime: start.UnixNano()})
}

// Replace overwrites or inserts a record.
func (c *Client) Replace(rec *wire.StationInfo, start time.Time) error {
	return c.send(&wire.StoreCommand{Op: wire.StoreReplace, Station: rec,
		StartTime: start.UnixNano()})
}

// Delete removes a record.
func (c *Client) Delete(id int64) error {
	return c.send(&wire.StoreCommand{Op: wire.StoreDelete, ID: id})
}

// Update sets a single field. Value must be a float64, an int64 or a string.
func (c *Client) Update(id int64, field wire.StationField, value any) error {
	switch value.(type) {
	case float64, int64, string:
	default:
		return serrors.New("unsupported update value", "type", fmt.Sprintf("%T", value))
	}
	return c.send(&wire.StoreCommand{Op: wire.StoreUpdate, ID: id, Field: field, Value: value})
}

// HandleReply is the reactor handler for the DEALER socket. A failure reply
// terminates the worker.
func HandleReply(sock *zmq.Socket) (bool, error) {
	b, err := sock.RecvBytes(0)
	if err != nil {
		return false, serrors.Wrap("receiving store reply", err)
	}
	var ack wire.Ack
	if err := ack.Unmarshal(b); err != nil {
		return false, serrors.Wrap("decoding store reply", err)
	}
	if !ack.Succeeded {
		return false, serrors.JoinNoStack(ErrRejected, nil, "reason", ack.Reason,
			"detail", ack.Detail)
	}
	return false, nil
}

// Close closes the socket unless it was handed to a reactor.
func (c *Client) Close() error {
	return c.sock.Close()
}
