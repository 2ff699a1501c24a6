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

// Package caster implements the correction data caster.
//
// A caster runs three workers, each a single-threaded reactor with its own
// sockets and event queue:
//
//   - The stream worker registers transmitters, forwards their frames to the
//     publish channels, applies key management batches and mirrors the
//     stations of remote casters.
//   - The client worker owns the station store. It answers discovery queries
//     and applies the store commands of the other workers.
//   - The statistics worker counts the published frames and keeps the real
//     update rates in the store current.
//
// Workers share no memory. All cross-worker effects are messages.
package caster

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rtkcaster/caster/caster/config"
	"github.com/rtkcaster/caster/caster/federation"
	"github.com/rtkcaster/caster/caster/store"
	"github.com/rtkcaster/caster/pkg/log"
	"github.com/rtkcaster/caster/pkg/private/serrors"
	"github.com/rtkcaster/caster/pkg/wire"
	"github.com/rtkcaster/caster/private/storage/db"
)

var (
	// ErrNotStarted is returned by operations that need running workers.
	ErrNotStarted = errors.New("caster not started")
	// ErrClosed is returned when starting a closed caster.
	ErrClosed = errors.New("caster closed")
)

// Caster is a running caster instance.
type Caster struct {
	id         int64
	endpoints  config.Endpoints
	logger     log.Logger
	store      *store.Backend
	client     *clientWorker
	stream     *streamWorker
	statistics *statisticsWorker
	federation *federation.Manager

	started   atomic.Bool
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// New opens the store and binds all endpoints. Records left over from a
// previous run are purged. The workers are started with Start.
func New(cfg *config.Config, m *Metrics) (_ *Caster, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if m == nil {
		m = &Metrics{}
	}
	id := cfg.General.ID
	c := &Caster{
		id:     id,
		logger: log.New("caster_id", id),
	}
	c.store, err = store.New(cfg.DB.Connection, &db.SqliteConfig{InMemory: cfg.DB.InMemory})
	if err != nil {
		return nil, serrors.Wrap("opening store", err)
	}
	defer func() {
		if err != nil {
			c.teardown()
		}
	}()
	purged, err := c.store.Purge(context.Background())
	if err != nil {
		return nil, serrors.Wrap("purging store", err)
	}
	if purged > 0 {
		c.logger.Info("Purged stale basestations", "count", purged)
	}
	eps := cfg.Endpoints
	if c.client, err = newClientWorker(cfg, &eps, c.store, m, c.logger); err != nil {
		return nil, err
	}
	if c.stream, err = newStreamWorker(cfg, &eps, m, c.logger); err != nil {
		return nil, err
	}
	if c.statistics, err = newStatisticsWorker(cfg, m, c.logger); err != nil {
		return nil, err
	}
	c.endpoints = eps
	c.federation = &federation.Manager{
		Control:  internal(id, "proxy"),
		Loopback: internal(id, "loopback"),
		Settle:   cfg.Timeouts.Settle.Duration,
		Timeout:  cfg.Timeouts.RPC.Duration,
	}
	return c, nil
}

// ID returns the caster ID.
func (c *Caster) ID() int64 {
	return c.id
}

// Endpoints returns the bound endpoints. Wildcard ports are resolved. If no
// external proxy control endpoint is configured, the in-process one is
// returned.
func (c *Caster) Endpoints() config.Endpoints {
	return c.endpoints
}

// Start launches the workers. The store owner is started first.
func (c *Caster) Start() error {
	if c.closed.Load() {
		return ErrClosed
	}
	if !c.started.CompareAndSwap(false, true) {
		return nil
	}
	if err := c.client.reactor.Start(); err != nil {
		return err
	}
	if err := c.stream.reactor.Start(); err != nil {
		return err
	}
	if err := c.statistics.start(); err != nil {
		return err
	}
	c.logger.Info("Caster started", "registration", c.endpoints.Registration,
		"query", c.endpoints.Query)
	return nil
}

// Run starts the caster and blocks until ctx is done or a worker
// terminates. The caster is closed before Run returns; the error of a failed
// worker is returned.
func (c *Caster) Run(ctx context.Context) error {
	if err := c.Start(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
	case <-c.client.reactor.Done():
	case <-c.stream.reactor.Done():
	case <-c.statistics.reactor.Done():
	}
	return c.Close()
}

// AddProxy mirrors the stations of a remote caster.
func (c *Caster) AddProxy(ctx context.Context, eps wire.ProxyEndpoints) error {
	if !c.started.Load() || c.closed.Load() {
		return ErrNotStarted
	}
	return c.federation.AddProxy(log.CtxWith(ctx, c.logger), eps)
}

// RemoveProxy stops mirroring a remote caster. Mirrored stations time out.
func (c *Caster) RemoveProxy(ctx context.Context, eps wire.ProxyEndpoints) error {
	if !c.started.Load() || c.closed.Load() {
		return ErrNotStarted
	}
	return c.federation.RemoveProxy(log.CtxWith(ctx, c.logger), eps)
}

// Close stops the workers and closes the store. The workers that send store
// commands are stopped before the store owner. Close returns the error that
// terminated a worker, if any.
func (c *Caster) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.closeErr = c.teardown()
		c.logger.Info("Caster stopped")
	})
	return c.closeErr
}

func (c *Caster) teardown() error {
	var errs serrors.List
	if c.stream != nil {
		if err := c.stream.close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.statistics != nil {
		if err := c.statistics.reactor.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.client != nil {
		if err := c.client.reactor.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.store.Close(); err != nil {
		errs = append(errs, serrors.Wrap("closing store", err))
	}
	return errs.ToError()
}
