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

// Package reactor implements a single-threaded event loop over ZeroMQ sockets.
//
// A Reactor owns a set of named channels (sockets with a handler) and a queue
// of timed events. Its loop processes all due events, then waits for input on
// the owned sockets, bounded by the time until the next queued event, and
// dispatches one handler call per ready socket. Sockets are not safe for
// concurrent use, so every socket added to a reactor must only be touched by
// the reactor's handlers from then on.
//
// A handler or event handler that returns an error, or panics, terminates the
// loop. The reactor is not restarted; the error is reported by Err.
package reactor

import (
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	zmq "github.com/pebbe/zmq4"

	"github.com/rtkcaster/caster/pkg/log"
	"github.com/rtkcaster/caster/pkg/private/serrors"
)

var (
	// ErrDuplicateChannel is returned when a name or a socket is added twice.
	ErrDuplicateChannel = errors.New("duplicate channel")
	// ErrUnknownChannel is returned when removing a channel that is not owned.
	ErrUnknownChannel = errors.New("unknown channel")
	// ErrStarted is returned when starting a reactor twice.
	ErrStarted = errors.New("reactor already started")
)

// Handler reads from a ready socket. Returning restart=true abandons the rest
// of the current ready set; the loop processes due events and polls again.
// Handlers that change the channel set should request a restart.
type Handler func(sock *zmq.Socket) (restart bool, err error)

// EventHandler processes a due event. It may schedule follow-up events.
type EventHandler[E any] func(ev E) error

// ThreadTracker attributes the OS thread running a loop to the loop's name.
type ThreadTracker interface {
	TrackCurrentThread(name string) (untrack func())
}

// Config configures a Reactor.
type Config[E any] struct {
	// Name identifies the reactor in logs and errors.
	Name string
	// OnEvent handles due events. It is required if events are scheduled.
	OnEvent EventHandler[E]
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
	// Logger defaults to a child of the root logger.
	Logger log.Logger
	// Threads, if set, is told which OS thread runs the loop.
	Threads ThreadTracker
}

type channel struct {
	name    string
	sock    *zmq.Socket
	handler Handler
}

var stopSeq atomic.Uint64

// Reactor is a single-threaded cooperative event loop.
type Reactor[E any] struct {
	name    string
	now     func() time.Time
	onEvent EventHandler[E]
	logger  log.Logger
	threads ThreadTracker

	channels map[string]*channel
	bySocket map[*zmq.Socket]*channel
	dirty    bool
	poller   *zmq.Poller
	queue    Queue[E]

	stopRecv *zmq.Socket
	stopSend *zmq.Socket
	stopOnce sync.Once
	started  atomic.Bool
	done     chan struct{}
	err      error
}

// New creates a reactor. The reactor owns a private pair of sockets used to
// signal shutdown.
func New[E any](cfg Config[E]) (*Reactor[E], error) {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New("worker", cfg.Name)
	}
	addr := fmt.Sprintf("inproc://reactor-stop-%s-%d", cfg.Name, stopSeq.Add(1))
	recv, err := zmq.NewSocket(zmq.PAIR)
	if err != nil {
		return nil, serrors.Wrap("creating stop socket", err, "worker", cfg.Name)
	}
	if err := recv.Bind(addr); err != nil {
		recv.Close()
		return nil, serrors.Wrap("binding stop socket", err, "worker", cfg.Name)
	}
	send, err := zmq.NewSocket(zmq.PAIR)
	if err != nil {
		recv.Close()
		return nil, serrors.Wrap("creating stop socket", err, "worker", cfg.Name)
	}
	if err := send.Connect(addr); err != nil {
		recv.Close()
		send.Close()
		return nil, serrors.Wrap("connecting stop socket", err, "worker", cfg.Name)
	}
	for _, s := range []*zmq.Socket{recv, send} {
		if err := s.SetLinger(0); err != nil {
			recv.Close()
			send.Close()
			return nil, serrors.Wrap("setting linger", err, "worker", cfg.Name)
		}
	}
	return &Reactor[E]{
		name:     cfg.Name,
		now:      cfg.Now,
		onEvent:  cfg.OnEvent,
		logger:   cfg.Logger,
		threads:  cfg.Threads,
		channels: make(map[string]*channel),
		bySocket: make(map[*zmq.Socket]*channel),
		dirty:    true,
		stopRecv: recv,
		stopSend: send,
		done:     make(chan struct{}),
	}, nil
}

// Name returns the name of the reactor.
func (r *Reactor[E]) Name() string {
	return r.name
}

// AddChannel takes ownership of sock and dispatches its input to h. It must be
// called before Start or from within a handler of this reactor.
func (r *Reactor[E]) AddChannel(name string, sock *zmq.Socket, h Handler) error {
	if _, ok := r.channels[name]; ok {
		return serrors.JoinNoStack(ErrDuplicateChannel, nil, "worker", r.name, "channel", name)
	}
	if _, ok := r.bySocket[sock]; ok {
		return serrors.JoinNoStack(ErrDuplicateChannel, nil, "worker", r.name, "channel", name)
	}
	ch := &channel{name: name, sock: sock, handler: h}
	r.channels[name] = ch
	r.bySocket[sock] = ch
	r.dirty = true
	return nil
}

// RemoveChannel releases the named channel and closes its socket. It must be
// called before Start or from within a handler of this reactor.
func (r *Reactor[E]) RemoveChannel(name string) error {
	ch, ok := r.channels[name]
	if !ok {
		return serrors.JoinNoStack(ErrUnknownChannel, nil, "worker", r.name, "channel", name)
	}
	delete(r.channels, name)
	delete(r.bySocket, ch.sock)
	r.dirty = true
	return ch.sock.Close()
}

// Schedule queues ev to fire at the given time. It must be called before Start
// or from within a handler of this reactor.
func (r *Reactor[E]) Schedule(at time.Time, ev E) {
	r.queue.Push(at, ev)
}

// Now returns the reactor's notion of the current time.
func (r *Reactor[E]) Now() time.Time {
	return r.now()
}

// Start launches the loop on its own locked OS thread with the given initial
// events.
func (r *Reactor[E]) Start(initial ...Scheduled[E]) error {
	if !r.started.CompareAndSwap(false, true) {
		return serrors.JoinNoStack(ErrStarted, nil, "worker", r.name)
	}
	for _, s := range initial {
		r.queue.Push(s.At, s.Event)
	}
	go func() {
		defer log.HandlePanic()
		r.run()
	}()
	return nil
}

// Done is closed once the loop has exited.
func (r *Reactor[E]) Done() <-chan struct{} {
	return r.done
}

// Err returns the error that terminated the loop. It is only meaningful after
// Done is closed.
func (r *Reactor[E]) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

// Close signals the loop to exit and waits for it. All owned sockets are
// closed. Close is idempotent and returns the error that terminated the loop,
// if any.
func (r *Reactor[E]) Close() error {
	r.stopOnce.Do(func() {
		if !r.started.CompareAndSwap(false, true) {
			// Running: wake the loop. The loop may already have exited on
			// error, in which case nobody reads and the send must not block.
			if _, err := r.stopSend.Send("", zmq.DONTWAIT); err != nil &&
				zmq.AsErrno(err) != zmq.Errno(syscall.EAGAIN) {
				r.logger.Error("Failed to signal shutdown", "err", err)
			}
			<-r.done
		} else {
			r.closeSockets()
			close(r.done)
		}
		r.stopSend.Close()
	})
	<-r.done
	return r.err
}

func (r *Reactor[E]) run() {
	defer close(r.done)
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	if r.threads != nil {
		defer r.threads.TrackCurrentThread(r.name)()
	}

	r.logger.Debug("Worker started")
	err := r.loop()
	r.closeSockets()
	if err != nil {
		r.logger.Error("Worker terminated", "err", err)
	} else {
		r.logger.Debug("Worker stopped")
	}
	r.err = err
}

func (r *Reactor[E]) loop() (err error) {
	defer func() {
		if msg := recover(); msg != nil {
			err = serrors.New("panic in worker", "worker", r.name, "panic", msg,
				"stack", string(debug.Stack()))
		}
	}()
	for {
		if err := r.processEvents(); err != nil {
			return err
		}
		if r.dirty {
			r.rebuildPoller()
		}
		polled, err := r.poller.Poll(r.timeout())
		if err != nil {
			if zmq.AsErrno(err) == zmq.Errno(syscall.EINTR) {
				continue
			}
			return serrors.Wrap("polling", err, "worker", r.name)
		}
		for _, p := range polled {
			if p.Socket == r.stopRecv {
				return nil
			}
		}
		for _, p := range polled {
			ch, ok := r.bySocket[p.Socket]
			if !ok {
				// Removed by an earlier handler of this ready set.
				continue
			}
			restart, err := ch.handler(p.Socket)
			if err != nil {
				return serrors.Wrap("handler failed", err, "worker", r.name, "channel", ch.name)
			}
			if restart {
				break
			}
		}
	}
}

func (r *Reactor[E]) processEvents() error {
	now := r.now()
	for {
		ev, ok := r.queue.PopDue(now)
		if !ok {
			return nil
		}
		if r.onEvent == nil {
			return serrors.New("event without event handler", "worker", r.name)
		}
		if err := r.onEvent(ev); err != nil {
			return serrors.Wrap("event handler failed", err, "worker", r.name)
		}
	}
}

// timeout returns the time until the next event, rounded up to the poller's
// millisecond resolution, or -1 to block indefinitely.
func (r *Reactor[E]) timeout() time.Duration {
	at, ok := r.queue.Peek()
	if !ok {
		return -1
	}
	d := at.Sub(r.now())
	if d <= 0 {
		return 0
	}
	if rem := d % time.Millisecond; rem != 0 {
		d += time.Millisecond - rem
	}
	return d
}

func (r *Reactor[E]) rebuildPoller() {
	p := zmq.NewPoller()
	p.Add(r.stopRecv, zmq.POLLIN)
	for _, ch := range r.channels {
		p.Add(ch.sock, zmq.POLLIN)
	}
	r.poller = p
	r.dirty = false
}

func (r *Reactor[E]) closeSockets() {
	for name, ch := range r.channels {
		if err := ch.sock.Close(); err != nil {
			r.logger.Error("Failed to close socket", "channel", name, "err", err)
		}
	}
	r.channels = map[string]*channel{}
	r.bySocket = map[*zmq.Socket]*channel{}
	r.stopRecv.Close()
}
