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

// Package config contains the configuration of the caster service.
package config

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/rtkcaster/caster/pkg/log"
	"github.com/rtkcaster/caster/pkg/private/serrors"
	"github.com/rtkcaster/caster/pkg/private/util"
	"github.com/rtkcaster/caster/private/config"
)

const (
	DefaultConnectionTimeout = 5 * time.Second
	DefaultProxyTimeout      = 5 * time.Second
	DefaultRPCTimeout        = 5 * time.Second
	DefaultSettle            = 100 * time.Millisecond
	DefaultKeySkew           = 5 * time.Minute
	DefaultStatisticsTick    = time.Second
	DefaultStatisticsWindow  = 10
	DefaultDBConnection      = "/var/lib/caster/caster.db"
)

var _ config.Config = (*Config)(nil)

// Config is the caster configuration.
type Config struct {
	General    General    `toml:"general,omitempty"`
	Endpoints  Endpoints  `toml:"endpoints,omitempty"`
	Timeouts   Timeouts   `toml:"timeouts,omitempty"`
	Statistics Statistics `toml:"statistics,omitempty"`
	DB         DB         `toml:"db,omitempty"`
	Logging    log.Config `toml:"log,omitempty"`
	API        API        `toml:"api,omitempty"`
}

// InitDefaults initializes the default values for all parts of the config.
func (cfg *Config) InitDefaults() {
	config.InitAll(
		&cfg.General,
		&cfg.Endpoints,
		&cfg.Timeouts,
		&cfg.Statistics,
		&cfg.DB,
		&cfg.Logging,
		&cfg.API,
	)
}

// Validate validates all parts of the config.
func (cfg *Config) Validate() error {
	return config.ValidateAll(
		&cfg.General,
		&cfg.Endpoints,
		&cfg.Timeouts,
		&cfg.Statistics,
		&cfg.DB,
		&cfg.Logging,
		&cfg.API,
	)
}

// Sample generates a sample config file for the caster.
func (cfg *Config) Sample(dst io.Writer, path config.Path, _ config.CtxMap) {
	config.WriteSample(dst, path, nil,
		&cfg.General,
		&cfg.Endpoints,
		&cfg.Timeouts,
		&cfg.Statistics,
		&cfg.DB,
		&cfg.Logging,
		&cfg.API,
	)
}

// General holds the identity of the caster.
type General struct {
	// ID is the globally unique caster ID.
	ID int64 `toml:"id,omitempty"`
	// ManagementKey is the hex encoded public key that signs key management
	// batches. Without it, every key management request is refused.
	ManagementKey string `toml:"management_key,omitempty"`
}

func (cfg *General) InitDefaults() {}

func (cfg *General) Validate() error {
	if cfg.ID <= 0 {
		return serrors.New("caster id must be positive", "id", cfg.ID)
	}
	if _, err := cfg.PublicKey(); err != nil {
		return err
	}
	return nil
}

// PublicKey decodes the management key. It returns nil if none is set.
func (cfg *General) PublicKey() (ed25519.PublicKey, error) {
	if cfg.ManagementKey == "" {
		return nil, nil
	}
	raw, err := hex.DecodeString(cfg.ManagementKey)
	if err != nil {
		return nil, serrors.Wrap("decoding management key", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, serrors.New("invalid management key length", "len", len(raw))
	}
	return ed25519.PublicKey(raw), nil
}

func (cfg *General) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, generalSample)
}

func (cfg *General) ConfigName() string {
	return "general"
}

// Endpoints are the addresses the caster binds.
type Endpoints struct {
	// Registration accepts transmitter registrations and payload frames.
	Registration string `toml:"registration,omitempty"`
	// Query answers client discovery queries.
	Query string `toml:"query,omitempty"`
	// ClientPublish fans out payload frames to clients.
	ClientPublish string `toml:"client_publish,omitempty"`
	// ProxyPublish fans out payload frames to federated casters.
	ProxyPublish string `toml:"proxy_publish,omitempty"`
	// Notifications fans out station notifications.
	Notifications string `toml:"notifications,omitempty"`
	// KeyManagement accepts signed key batches.
	KeyManagement string `toml:"key_management,omitempty"`
	// ProxyControl accepts proxy add and remove requests. If empty, the
	// channel is only reachable from within the process.
	ProxyControl string `toml:"proxy_control,omitempty"`
}

func (cfg *Endpoints) InitDefaults() {
	set := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	set(&cfg.Registration, "tcp://*:6600")
	set(&cfg.Query, "tcp://*:6601")
	set(&cfg.ClientPublish, "tcp://*:6602")
	set(&cfg.ProxyPublish, "tcp://*:6603")
	set(&cfg.Notifications, "tcp://*:6604")
	set(&cfg.KeyManagement, "tcp://*:6605")
}

func (cfg *Endpoints) Validate() error {
	required := []struct {
		name, value string
	}{
		{"registration", cfg.Registration},
		{"query", cfg.Query},
		{"client_publish", cfg.ClientPublish},
		{"proxy_publish", cfg.ProxyPublish},
		{"notifications", cfg.Notifications},
		{"key_management", cfg.KeyManagement},
	}
	seen := make(map[string]string, len(required)+1)
	for _, r := range required {
		if r.value == "" {
			return serrors.New("endpoint not set", "endpoint", r.name)
		}
		if other, ok := seen[r.value]; ok {
			return serrors.New("endpoint used twice", "address", r.value,
				"endpoints", fmt.Sprintf("%s,%s", other, r.name))
		}
		seen[r.value] = r.name
	}
	if other, ok := seen[cfg.ProxyControl]; ok {
		return serrors.New("endpoint used twice", "address", cfg.ProxyControl,
			"endpoints", fmt.Sprintf("%s,proxy_control", other))
	}
	return nil
}

func (cfg *Endpoints) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, endpointsSample)
}

func (cfg *Endpoints) ConfigName() string {
	return "endpoints"
}

// Timeouts configures silence timeouts and federation calls.
type Timeouts struct {
	// Connection is the silence after which a transmitter is removed.
	Connection util.DurWrap `toml:"connection,omitempty"`
	// ProxyStream is the silence after which a mirrored stream is removed.
	ProxyStream util.DurWrap `toml:"proxy_stream,omitempty"`
	// RPC bounds every call to a remote caster.
	RPC util.DurWrap `toml:"rpc,omitempty"`
	// Settle is the time new subscriptions get before the remote roster is
	// fetched.
	Settle util.DurWrap `toml:"settle,omitempty"`
	// KeySkew is the maximum age of a key management batch.
	KeySkew util.DurWrap `toml:"key_skew,omitempty"`
}

func (cfg *Timeouts) InitDefaults() {
	initDuration(&cfg.Connection, DefaultConnectionTimeout)
	initDuration(&cfg.ProxyStream, DefaultProxyTimeout)
	initDuration(&cfg.RPC, DefaultRPCTimeout)
	initDuration(&cfg.Settle, DefaultSettle)
	initDuration(&cfg.KeySkew, DefaultKeySkew)
}

func (cfg *Timeouts) Validate() error {
	for name, d := range map[string]time.Duration{
		"connection":   cfg.Connection.Duration,
		"proxy_stream": cfg.ProxyStream.Duration,
		"rpc":          cfg.RPC.Duration,
		"key_skew":     cfg.KeySkew.Duration,
	} {
		if d <= 0 {
			return serrors.New("timeout must be positive", "timeout", name, "value", d)
		}
	}
	if cfg.Settle.Duration < 0 {
		return serrors.New("settle time must not be negative", "value", cfg.Settle)
	}
	return nil
}

func (cfg *Timeouts) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, timeoutsSample)
}

func (cfg *Timeouts) ConfigName() string {
	return "timeouts"
}

// Statistics configures the real update rate computation.
type Statistics struct {
	// Tick is the interval between rate computations.
	Tick util.DurWrap `toml:"tick,omitempty"`
	// Window is the number of ticks rates are averaged over.
	Window int `toml:"window,omitempty"`
}

func (cfg *Statistics) InitDefaults() {
	initDuration(&cfg.Tick, DefaultStatisticsTick)
	if cfg.Window == 0 {
		cfg.Window = DefaultStatisticsWindow
	}
}

func (cfg *Statistics) Validate() error {
	if cfg.Tick.Duration <= 0 {
		return serrors.New("statistics tick must be positive", "tick", cfg.Tick)
	}
	if cfg.Window < 1 {
		return serrors.New("statistics window must be positive", "window", cfg.Window)
	}
	return nil
}

func (cfg *Statistics) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, statisticsSample)
}

func (cfg *Statistics) ConfigName() string {
	return "statistics"
}

// DB configures the station store.
type DB struct {
	// Connection is the path of the database file.
	Connection string `toml:"connection,omitempty"`
	// InMemory keeps the store in memory. Connection is then only used to
	// name the database.
	InMemory bool `toml:"in_memory,omitempty"`
}

func (cfg *DB) InitDefaults() {
	if cfg.Connection == "" {
		cfg.Connection = DefaultDBConnection
	}
}

func (cfg *DB) Validate() error {
	if cfg.Connection == "" {
		return serrors.New("db connection not set")
	}
	return nil
}

func (cfg *DB) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, dbSample)
}

func (cfg *DB) ConfigName() string {
	return "db"
}

// API configures the management HTTP API.
type API struct {
	// Addr is the address of the API server. The API is disabled if empty.
	Addr string `toml:"addr,omitempty"`
}

func (cfg *API) InitDefaults() {}

func (cfg *API) Validate() error { return nil }

func (cfg *API) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, apiSample)
}

func (cfg *API) ConfigName() string {
	return "api"
}

func initDuration(d *util.DurWrap, def time.Duration) {
	if d.Duration == 0 {
		d.Duration = def
	}
}
