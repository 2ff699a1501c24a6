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

// Package mgmtapi serves the HTTP management API of the caster.
//
// The API exposes the identity and configuration of the caster, its metrics,
// the console log level, and the federation links:
//
//	GET    /info         caster ID and bound endpoints
//	GET    /config       running configuration as TOML
//	GET    /metrics      prometheus metrics
//	GET    /log/level    console log level
//	PUT    /log/level    change the console log level
//	POST   /proxy        link a remote caster
//	DELETE /proxy        unlink a remote caster
//
// Errors are reported as problem documents.
package mgmtapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/pelletier/go-toml/v2"

	"github.com/rtkcaster/caster/caster/config"
	"github.com/rtkcaster/caster/caster/federation"
	"github.com/rtkcaster/caster/pkg/log"
	"github.com/rtkcaster/caster/pkg/wire"
)

//go:generate mockgen -destination=mock_mgmtapi/mgmtapi.go -package=mock_mgmtapi github.com/rtkcaster/caster/caster/mgmtapi Federation

// maxBody bounds request bodies.
const maxBody = 1 << 16

// Federation links and unlinks remote casters.
type Federation interface {
	AddProxy(ctx context.Context, eps wire.ProxyEndpoints) error
	RemoveProxy(ctx context.Context, eps wire.ProxyEndpoints) error
}

// Info describes a running caster.
type Info struct {
	CasterID  int64     `json:"caster_id"`
	Endpoints Endpoints `json:"endpoints"`
}

// Endpoints are the resolved addresses of a caster.
type Endpoints struct {
	Registration  string `json:"registration"`
	Query         string `json:"query"`
	ClientPublish string `json:"client_publish"`
	ProxyPublish  string `json:"proxy_publish"`
	Notifications string `json:"notifications"`
	KeyManagement string `json:"key_management"`
	ProxyControl  string `json:"proxy_control,omitempty"`
}

// EndpointsFrom converts the endpoint configuration.
func EndpointsFrom(eps config.Endpoints) Endpoints {
	return Endpoints{
		Registration:  eps.Registration,
		Query:         eps.Query,
		ClientPublish: eps.ClientPublish,
		ProxyPublish:  eps.ProxyPublish,
		Notifications: eps.Notifications,
		KeyManagement: eps.KeyManagement,
		ProxyControl:  eps.ProxyControl,
	}
}

// Proxy is the body of the proxy requests.
type Proxy struct {
	Query   string `json:"query"`
	Publish string `json:"publish"`
	Notify  string `json:"notify"`
}

// Problem is an RFC 7807 problem document.
type Problem struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Server implements the management API.
type Server struct {
	Info       Info
	Config     any
	Federation Federation
	// Metrics serves /metrics. If nil, the route is not registered.
	Metrics http.Handler
	// NotStarted is the error Federation returns before the caster runs.
	NotStarted error
	Logger     log.Logger
}

// Handler returns the router of s.
func Handler(s *Server) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodDelete},
	}))
	r.Get("/info", s.GetInfo)
	r.Get("/config", s.GetConfig)
	r.Get("/log/level", log.ConsoleLevelHandler().ServeHTTP)
	r.Put("/log/level", log.ConsoleLevelHandler().ServeHTTP)
	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics)
	}
	r.Post("/proxy", s.AddProxy)
	r.Delete("/proxy", s.RemoveProxy)
	return r
}

// GetInfo writes the caster info as JSON.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	if err := enc.Encode(s.Info); err != nil {
		s.logger().Error("Failed to write info", "err", err)
	}
}

// GetConfig writes the running configuration as TOML.
func (s *Server) GetConfig(w http.ResponseWriter, r *http.Request) {
	raw, err := toml.Marshal(s.Config)
	if err != nil {
		s.problem(w, http.StatusInternalServerError, "encoding config", err)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.Write(raw)
}

// AddProxy links the remote caster in the request body.
func (s *Server) AddProxy(w http.ResponseWriter, r *http.Request) {
	s.proxy(w, r, s.Federation.AddProxy)
}

// RemoveProxy unlinks the remote caster in the request body.
func (s *Server) RemoveProxy(w http.ResponseWriter, r *http.Request) {
	s.proxy(w, r, s.Federation.RemoveProxy)
}

func (s *Server) proxy(w http.ResponseWriter, r *http.Request,
	op func(context.Context, wire.ProxyEndpoints) error) {

	var p Proxy
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		s.problem(w, http.StatusBadRequest, "malformed body", err)
		return
	}
	if p.Query == "" || p.Publish == "" || p.Notify == "" {
		s.problem(w, http.StatusBadRequest, "malformed body",
			errors.New("query, publish and notify are required"))
		return
	}
	err := op(r.Context(), wire.ProxyEndpoints{
		Query:   p.Query,
		Publish: p.Publish,
		Notify:  p.Notify,
	})
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case s.NotStarted != nil && errors.Is(err, s.NotStarted):
		s.problem(w, http.StatusServiceUnavailable, "caster not running", err)
	case errors.Is(err, federation.ErrUnreachable):
		s.problem(w, http.StatusGatewayTimeout, "remote caster unreachable", err)
	case errors.Is(err, federation.ErrRefused):
		s.problem(w, http.StatusBadRequest, "proxy request refused", err)
	default:
		s.problem(w, http.StatusInternalServerError, "proxy request failed", err)
	}
}

func (s *Server) problem(w http.ResponseWriter, status int, title string, err error) {
	s.logger().Debug("Request failed", "title", title, "err", err)
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Problem{Title: title, Status: status, Detail: err.Error()})
}

func (s *Server) logger() log.Logger {
	if s.Logger == nil {
		return log.Root()
	}
	return s.Logger
}
