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
	"context"
	"errors"
	"time"

	zmq "github.com/pebbe/zmq4"

	"github.com/rtkcaster/caster/caster/config"
	"github.com/rtkcaster/caster/caster/event"
	"github.com/rtkcaster/caster/caster/query"
	"github.com/rtkcaster/caster/caster/store"
	"github.com/rtkcaster/caster/caster/storectl"
	"github.com/rtkcaster/caster/pkg/log"
	"github.com/rtkcaster/caster/pkg/metrics"
	"github.com/rtkcaster/caster/pkg/private/prom"
	"github.com/rtkcaster/caster/pkg/wire"
	"github.com/rtkcaster/caster/private/reactor"
)

// clientWorker owns the station store. It answers client queries and applies
// the store commands of the other workers.
type clientWorker struct {
	id      int64
	store   *store.Backend
	metrics *Metrics
	logger  log.Logger
	reactor *reactor.Reactor[event.Event]
}

func newClientWorker(cfg *config.Config, eps *config.Endpoints, backend *store.Backend,
	m *Metrics, logger log.Logger) (_ *clientWorker, err error) {

	w := &clientWorker{
		id:      cfg.General.ID,
		store:   backend,
		metrics: m,
		logger:  logger.New("worker", "client"),
	}
	w.reactor, err = reactor.New(reactor.Config[event.Event]{
		Name:    "client",
		Threads: m.Threads,
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
	sock, resolved, err := bind(zmq.ROUTER, cfg.Endpoints.Query)
	if err != nil {
		return nil, err
	}
	if err := w.reactor.AddChannel("query", sock, w.handleQuery); err != nil {
		sock.Close()
		return nil, err
	}
	eps.Query = resolved
	ctl, err := storectl.Listen(storectl.Endpoint(w.id))
	if err != nil {
		return nil, err
	}
	srv := &storectl.Server{Store: backend, Logger: w.logger}
	if err := w.reactor.AddChannel("store", ctl, srv.Handle); err != nil {
		ctl.Close()
		return nil, err
	}
	return w, nil
}

func (w *clientWorker) handleQuery(sock *zmq.Socket) (bool, error) {
	req, ok, err := recvRequest(sock)
	if err != nil || !ok {
		return false, err
	}
	rep, err := w.query(req.body)
	if err != nil {
		return false, err
	}
	metrics.CounterInc(metrics.CounterWith(w.metrics.Queries, prom.LabelResult, result(rep.Reason)))
	return false, reply(sock, req, rep.Marshal())
}

// query compiles and executes a query request. Rejected requests are answered
// with a failure reason; store errors are returned.
func (w *clientWorker) query(body []byte) (*wire.QueryReply, error) {
	failed := func(reason wire.FailureReason, err error) (*wire.QueryReply, error) {
		w.logger.Debug("Rejected query", "reason", reason, "err", err)
		return &wire.QueryReply{CasterID: w.id, Reason: reason}, nil
	}
	var req wire.QueryRequest
	if err := req.Unmarshal(body); err != nil {
		return failed(wire.FailureMalformed, err)
	}
	now := time.Now()
	q, err := query.Compile(&req, now)
	switch {
	case errors.Is(err, query.ErrTooComplex):
		return failed(wire.FailureTooComplex, err)
	case errors.Is(err, query.ErrInvalid):
		return failed(wire.FailureMalformed, err)
	case err != nil:
		return nil, err
	}
	ctx := context.Background()
	ids, err := w.store.IDs(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, err
	}
	stations, err := w.store.Hydrate(ctx, ids, now)
	if err != nil {
		return nil, err
	}
	return &wire.QueryReply{CasterID: w.id, Stations: stations}, nil
}
