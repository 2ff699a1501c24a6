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

package reactor_test

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	zmq "github.com/pebbe/zmq4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtkcaster/caster/private/reactor"
)

var addrSeq atomic.Uint64

// pipe returns a connected PUSH/PULL pair over inproc.
func pipe(t *testing.T) (push, pull *zmq.Socket) {
	t.Helper()
	addr := fmt.Sprintf("inproc://reactor-test-%d", addrSeq.Add(1))
	pull, err := zmq.NewSocket(zmq.PULL)
	require.NoError(t, err)
	require.NoError(t, pull.Bind(addr))
	push, err = zmq.NewSocket(zmq.PUSH)
	require.NoError(t, err)
	require.NoError(t, push.SetLinger(0))
	require.NoError(t, push.Connect(addr))
	t.Cleanup(func() { push.Close() })
	return push, pull
}

func TestEventsFireInOrderAndRearm(t *testing.T) {
	fired := make(chan string, 16)
	var r *reactor.Reactor[string]
	ticks := 0
	r, err := reactor.New(reactor.Config[string]{
		Name: "events",
		OnEvent: func(ev string) error {
			fired <- ev
			if ev == "tick" && ticks < 2 {
				ticks++
				r.Schedule(r.Now().Add(10*time.Millisecond), "tick")
			}
			return nil
		},
	})
	require.NoError(t, err)
	now := time.Now()
	require.NoError(t, r.Start(
		reactor.Scheduled[string]{At: now.Add(30 * time.Millisecond), Event: "late"},
		reactor.Scheduled[string]{At: now, Event: "tick"},
	))
	var got []string
	for len(got) < 4 {
		select {
		case ev := <-fired:
			got = append(got, ev)
		case <-time.After(time.Second):
			t.Fatalf("timed out, got %v", got)
		}
	}
	assert.Equal(t, "tick", got[0])
	assert.ElementsMatch(t, []string{"tick", "tick", "tick", "late"}, got)
	assert.NoError(t, r.Close())
}

func TestChannelDispatch(t *testing.T) {
	push, pull := pipe(t)
	got := make(chan string, 1)
	r, err := reactor.New(reactor.Config[struct{}]{Name: "dispatch"})
	require.NoError(t, err)
	require.NoError(t, r.AddChannel("pull", pull, func(s *zmq.Socket) (bool, error) {
		msg, err := s.Recv(0)
		if err != nil {
			return false, err
		}
		got <- msg
		return false, nil
	}))
	require.NoError(t, r.Start())
	_, err = push.Send("hello", 0)
	require.NoError(t, err)
	select {
	case msg := <-got:
		assert.Equal(t, "hello", msg)
	case <-time.After(time.Second):
		t.Fatal("handler not invoked")
	}
	assert.NoError(t, r.Close())
	assert.NoError(t, r.Close(), "close is idempotent")
}

func TestRestartKeepsRemainingInput(t *testing.T) {
	pushA, pullA := pipe(t)
	pushB, pullB := pipe(t)
	seen := make(chan string, 4)
	r, err := reactor.New(reactor.Config[struct{}]{Name: "restart"})
	require.NoError(t, err)
	handler := func(name string) reactor.Handler {
		return func(s *zmq.Socket) (bool, error) {
			if _, err := s.Recv(0); err != nil {
				return false, err
			}
			seen <- name
			return true, nil
		}
	}
	require.NoError(t, r.AddChannel("a", pullA, handler("a")))
	require.NoError(t, r.AddChannel("b", pullB, handler("b")))
	_, err = pushA.Send("x", 0)
	require.NoError(t, err)
	_, err = pushB.Send("y", 0)
	require.NoError(t, err)
	require.NoError(t, r.Start())

	var got []string
	for len(got) < 2 {
		select {
		case n := <-seen:
			got = append(got, n)
		case <-time.After(time.Second):
			t.Fatalf("timed out, got %v", got)
		}
	}
	assert.ElementsMatch(t, []string{"a", "b"}, got)
	assert.NoError(t, r.Close())
}

func TestHandlerErrorTerminates(t *testing.T) {
	push, pull := pipe(t)
	boom := errors.New("boom")
	r, err := reactor.New(reactor.Config[struct{}]{Name: "failing"})
	require.NoError(t, err)
	require.NoError(t, r.AddChannel("pull", pull, func(s *zmq.Socket) (bool, error) {
		_, _ = s.Recv(0)
		return false, boom
	}))
	require.NoError(t, r.Start())
	_, err = push.Send("x", 0)
	require.NoError(t, err)
	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatal("reactor did not terminate")
	}
	assert.ErrorIs(t, r.Err(), boom)
	assert.ErrorIs(t, r.Close(), boom)
}

func TestPanicTerminates(t *testing.T) {
	r, err := reactor.New(reactor.Config[int]{
		Name:    "panicking",
		OnEvent: func(int) error { panic("unexpected") },
	})
	require.NoError(t, err)
	require.NoError(t, r.Start(reactor.Scheduled[int]{At: time.Now(), Event: 1}))
	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatal("reactor did not terminate")
	}
	assert.Error(t, r.Err())
	assert.Error(t, r.Close())
}

func TestChannelBookkeeping(t *testing.T) {
	_, pull := pipe(t)
	r, err := reactor.New(reactor.Config[struct{}]{Name: "bookkeeping"})
	require.NoError(t, err)
	noop := func(*zmq.Socket) (bool, error) { return false, nil }
	require.NoError(t, r.AddChannel("pull", pull, noop))
	assert.ErrorIs(t, r.AddChannel("pull", pull, noop), reactor.ErrDuplicateChannel)
	assert.ErrorIs(t, r.AddChannel("other", pull, noop), reactor.ErrDuplicateChannel)
	assert.ErrorIs(t, r.RemoveChannel("missing"), reactor.ErrUnknownChannel)
	assert.NoError(t, r.RemoveChannel("pull"))

	assert.NoError(t, r.Close(), "close before start")
	assert.ErrorIs(t, r.Start(), reactor.ErrStarted)
}

type tracker struct {
	tracked   chan string
	untracked chan string
}

func (tr *tracker) TrackCurrentThread(name string) func() {
	tr.tracked <- name
	return func() { tr.untracked <- name }
}

func TestThreadTracking(t *testing.T) {
	tr := &tracker{tracked: make(chan string, 1), untracked: make(chan string, 1)}
	r, err := reactor.New(reactor.Config[struct{}]{Name: "tracked", Threads: tr})
	require.NoError(t, err)
	require.NoError(t, r.Start())
	assert.Equal(t, "tracked", <-tr.tracked)
	require.NoError(t, r.Close())
	assert.Equal(t, "tracked", <-tr.untracked)
}
