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
	"time"

	zmq "github.com/pebbe/zmq4"

	"github.com/rtkcaster/caster/caster/config"
	"github.com/rtkcaster/caster/caster/event"
	"github.com/rtkcaster/caster/caster/stats"
	"github.com/rtkcaster/caster/caster/storectl"
	"github.com/rtkcaster/caster/pkg/log"
	"github.com/rtkcaster/caster/pkg/private/serrors"
	"github.com/rtkcaster/caster/pkg/wire"
	"github.com/rtkcaster/caster/private/reactor"
)

// statisticsWorker observes the published frames and keeps the real update
// rates in the store current.
type statisticsWorker struct {
	id      int64
	tick    time.Duration
	tracker *stats.Tracker
	store   *storectl.Client
	logger  log.Logger
	reactor *reactor.Reactor[event.Event]
}

func newStatisticsWorker(cfg *config.Config, m *Metrics,
	logger log.Logger) (_ *statisticsWorker, err error) {

	w := &statisticsWorker{
		id:      cfg.General.ID,
		tick:    cfg.Statistics.Tick.Duration,
		tracker: stats.New(cfg.Statistics.Window, cfg.Statistics.Tick.Duration),
		logger:  logger.New("worker", "statistics"),
	}
	w.reactor, err = reactor.New(reactor.Config[event.Event]{
		Name:    "statistics",
		Threads: m.Threads,
		OnEvent: w.handleEvent,
		Logger:  w.logger,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			w.reactor.Close()
		}
	}()
	channels := []struct {
		name     string
		endpoint string
		handler  reactor.Handler
	}{
		{"frames", internal(w.id, "frames"), w.handleFrame},
		{"notifications", internal(w.id, "notify"), w.handleNotification},
	}
	for _, c := range channels {
		sock, err := subscriber(c.endpoint)
		if err != nil {
			return nil, err
		}
		if err := w.reactor.AddChannel(c.name, sock, c.handler); err != nil {
			sock.Close()
			return nil, err
		}
	}
	if w.store, err = storectl.Dial(storectl.Endpoint(w.id)); err != nil {
		return nil, err
	}
	if err := w.reactor.AddChannel("store", w.store.Socket(), storectl.HandleReply); err != nil {
		w.store.Close()
		return nil, err
	}
	return w, nil
}

func (w *statisticsWorker) start() error {
	return w.reactor.Start(reactor.Scheduled[event.Event]{
		At:    w.reactor.Now().Add(w.tick),
		Event: event.Tick(),
	})
}

func (w *statisticsWorker) handleFrame(sock *zmq.Socket) (bool, error) {
	frame, err := sock.RecvBytes(0)
	if err != nil {
		return false, serrors.Wrap("receiving frame", err)
	}
	casterID, streamID, _, err := wire.SplitPrefix(frame)
	if err != nil || casterID != w.id {
		return false, nil
	}
	w.tracker.Count(streamID)
	return false, nil
}

func (w *statisticsWorker) handleNotification(sock *zmq.Socket) (bool, error) {
	frame, err := sock.RecvBytes(0)
	if err != nil {
		return false, serrors.Wrap("receiving notification", err)
	}
	casterID, streamID, body, err := wire.SplitPrefix(frame)
	if err != nil || casterID != w.id {
		return false, nil
	}
	var n wire.Notification
	if err := n.Unmarshal(body); err != nil {
		return false, nil
	}
	switch n.Kind {
	case wire.NotificationNewStation:
		w.tracker.Add(streamID)
	case wire.NotificationRemoved:
		w.tracker.Remove(streamID)
	}
	return false, nil
}

func (w *statisticsWorker) handleEvent(ev event.Event) error {
	if ev.Kind != event.StatisticsTick {
		return serrors.New("unexpected event", "kind", ev.Kind)
	}
	for _, u := range w.tracker.Tick() {
		if err := w.store.Update(u.StreamID, wire.FieldRealUpdateRate, u.Rate); err != nil {
			return err
		}
	}
	w.reactor.Schedule(w.reactor.Now().Add(w.tick), event.Tick())
	return nil
}
