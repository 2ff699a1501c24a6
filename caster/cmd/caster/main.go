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

// Caster serves RTK correction data: basestations register and stream their
// frames, clients discover basestations and subscribe to them.
package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/rtkcaster/caster/caster"
	"github.com/rtkcaster/caster/caster/config"
	"github.com/rtkcaster/caster/caster/mgmtapi"
	"github.com/rtkcaster/caster/pkg/log"
	"github.com/rtkcaster/caster/pkg/private/processmetrics"
	"github.com/rtkcaster/caster/pkg/private/prom"
	"github.com/rtkcaster/caster/pkg/private/serrors"
	"github.com/rtkcaster/caster/private/app/launcher"
)

var globalCfg config.Config

func main() {
	application := launcher.Application{
		TOMLConfig: &globalCfg,
		ShortName:  "RTK Caster",
		Main:       realMain,
	}
	application.Run()
}

func realMain(ctx context.Context) error {
	metrics := caster.NewMetrics(prometheus.DefaultRegisterer)
	prom.ExportCasterID(prometheus.DefaultRegisterer, globalCfg.General.ID)
	threads, err := processmetrics.NewCollector()
	if err != nil {
		log.Info("Worker thread metrics unavailable", "err", err)
	} else {
		prom.SafeRegister(prometheus.DefaultRegisterer, threads)
		metrics.Threads = threads
	}
	c, err := caster.New(&globalCfg, metrics)
	if err != nil {
		return serrors.Wrap("creating caster", err)
	}
	if err := c.Start(); err != nil {
		c.Close()
		return serrors.Wrap("starting caster", err)
	}
	g, errCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer log.HandlePanic()
		return c.Run(errCtx)
	})

	if globalCfg.API.Addr != "" {
		server := &mgmtapi.Server{
			Info: mgmtapi.Info{
				CasterID:  c.ID(),
				Endpoints: mgmtapi.EndpointsFrom(c.Endpoints()),
			},
			Config:     &globalCfg,
			Federation: c,
			Metrics:    promhttp.Handler(),
			NotStarted: caster.ErrNotStarted,
			Logger:     log.New("component", "mgmtapi"),
		}
		log.Info("Exposing API", "addr", globalCfg.API.Addr)
		mgmtServer := &http.Server{
			Addr:              globalCfg.API.Addr,
			Handler:           mgmtapi.Handler(server),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			defer log.HandlePanic()
			err := mgmtServer.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return serrors.Wrap("serving management API", err)
			}
			return nil
		})
		g.Go(func() error {
			defer log.HandlePanic()
			<-errCtx.Done()
			return mgmtServer.Close()
		})
	}
	return g.Wait()
}
