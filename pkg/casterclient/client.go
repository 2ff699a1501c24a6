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

// Package casterclient contains the client side of the caster protocols:
// transmitters that register basestations and stream their data, discovery
// queries, subscriptions to published frames and notifications, and the
// administrative key management and proxy control requests.
//
// Request/reply calls use a fresh socket per call, so they are safe for
// concurrent use. Transmitters and subscribers own a socket and must not be
// used concurrently.
package casterclient

import (
	"errors"
	"fmt"
	"syscall"
	"time"

	zmq "github.com/pebbe/zmq4"

	"github.com/rtkcaster/caster/pkg/private/serrors"
	"github.com/rtkcaster/caster/pkg/wire"
)

// DefaultTimeout bounds calls whose timeout is not set.
const DefaultTimeout = 5 * time.Second

var (
	// ErrUnreachable is returned when a caster does not answer in time.
	ErrUnreachable = errors.New("caster unreachable")
	// ErrTimeout is returned when no message arrives in time.
	ErrTimeout = errors.New("timed out")
)

// RejectedError is returned when a caster answers with a failure reason.
type RejectedError struct {
	Reason wire.FailureReason
	Detail string
}

func (e *RejectedError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("rejected: %s", e.Reason)
	}
	return fmt.Sprintf("rejected: %s: %s", e.Reason, e.Detail)
}

// Reason returns the failure reason carried by err, or wire.FailureNone.
func Reason(err error) wire.FailureReason {
	var r *RejectedError
	if errors.As(err, &r) {
		return r.Reason
	}
	return wire.FailureNone
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultTimeout
	}
	return d
}

func isTimeout(err error) bool {
	return zmq.AsErrno(err) == zmq.Errno(syscall.EAGAIN)
}

// Call performs a single request/reply exchange on a fresh REQ socket.
func Call(endpoint string, req []byte, timeout time.Duration) ([]byte, error) {
	timeout = timeoutOrDefault(timeout)
	sock, err := zmq.NewSocket(zmq.REQ)
	if err != nil {
		return nil, serrors.Wrap("creating request socket", err)
	}
	defer sock.Close()
	for _, set := range []func(time.Duration) error{sock.SetSndtimeo, sock.SetRcvtimeo} {
		if err := set(timeout); err != nil {
			return nil, serrors.Wrap("setting timeout", err)
		}
	}
	if err := sock.SetLinger(0); err != nil {
		return nil, serrors.Wrap("setting linger", err)
	}
	if err := sock.Connect(endpoint); err != nil {
		return nil, serrors.Wrap("connecting", err, "endpoint", endpoint)
	}
	if _, err := sock.SendBytes(req, 0); err != nil {
		return nil, unreachable("sending request", err, endpoint)
	}
	reply, err := sock.RecvBytes(0)
	if err != nil {
		return nil, unreachable("receiving reply", err, endpoint)
	}
	return reply, nil
}

func unreachable(msg string, err error, endpoint string) error {
	if isTimeout(err) {
		return serrors.JoinNoStack(ErrUnreachable, nil, "detail", msg, "endpoint", endpoint)
	}
	return serrors.Wrap(msg, err, "endpoint", endpoint)
}

// Query sends a discovery query to a caster. A failure reply is returned as
// a RejectedError.
func Query(endpoint string, req *wire.QueryRequest, timeout time.Duration) (*wire.QueryReply, error) {
	raw, err := Call(endpoint, req.Marshal(), timeout)
	if err != nil {
		return nil, err
	}
	var reply wire.QueryReply
	if err := reply.Unmarshal(raw); err != nil {
		return nil, serrors.Wrap("decoding query reply", err)
	}
	if reply.Reason != wire.FailureNone {
		return nil, &RejectedError{Reason: reply.Reason}
	}
	return &reply, nil
}

// callAck performs a call whose reply is an Ack.
func callAck(endpoint string, req []byte, timeout time.Duration) error {
	raw, err := Call(endpoint, req, timeout)
	if err != nil {
		return err
	}
	var ack wire.Ack
	if err := ack.Unmarshal(raw); err != nil {
		return serrors.Wrap("decoding reply", err)
	}
	if !ack.Succeeded {
		return &RejectedError{Reason: ack.Reason, Detail: ack.Detail}
	}
	return nil
}
