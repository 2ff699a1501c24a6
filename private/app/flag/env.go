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

// Package flag provides command line flags shared by the caster tools.
package flag

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"sync"

	"github.com/spf13/pflag"

	"github.com/rtkcaster/caster/pkg/private/serrors"
)

const defaultEnvironmentFile = "/etc/caster/environment.json"

// Defaults of a caster running on the local host with the default
// configuration.
const (
	DefaultQuery         = "tcp://127.0.0.1:6601"
	DefaultClientPublish = "tcp://127.0.0.1:6602"
	DefaultNotifications = "tcp://127.0.0.1:6604"
	DefaultKeyManagement = "tcp://127.0.0.1:6605"
	DefaultAPI           = "http://127.0.0.1:8080"
)

// File is the content of the environment file.
type File struct {
	Query         string `json:"query,omitempty"`
	ClientPublish string `json:"client_publish,omitempty"`
	Notifications string `json:"notifications,omitempty"`
	KeyManagement string `json:"key_management,omitempty"`
	API           string `json:"api,omitempty"`
}

type value struct {
	name     string
	env      string
	def      string
	usage    string
	flag     *pflag.Flag
	fromEnv  *string
	fromFile func(f *File) string
}

// CasterEnvironment resolves the addresses of the caster a tool talks to.
// Every address is taken from the first of these sources that sets it:
//  1. Command line flag
//  2. Environment variable
//  3. Environment file
//  4. Default value
type CasterEnvironment struct {
	values   map[string]*value
	file     File
	filepath string

	mtx sync.Mutex
}

func (e *CasterEnvironment) init() {
	if e.values != nil {
		return
	}
	e.values = map[string]*value{}
	for _, v := range []*value{
		{
			name: "query", env: "CASTER_QUERY", def: DefaultQuery,
			usage:    "Query endpoint of the caster.",
			fromFile: func(f *File) string { return f.Query },
		},
		{
			name: "client-publish", env: "CASTER_CLIENT_PUBLISH", def: DefaultClientPublish,
			usage:    "Client publish endpoint of the caster.",
			fromFile: func(f *File) string { return f.ClientPublish },
		},
		{
			name: "notifications", env: "CASTER_NOTIFICATIONS", def: DefaultNotifications,
			usage:    "Notification endpoint of the caster.",
			fromFile: func(f *File) string { return f.Notifications },
		},
		{
			name: "key-management", env: "CASTER_KEY_MANAGEMENT", def: DefaultKeyManagement,
			usage:    "Key management endpoint of the caster.",
			fromFile: func(f *File) string { return f.KeyManagement },
		},
		{
			name: "api", env: "CASTER_API", def: DefaultAPI,
			usage:    "Base URL of the caster management API.",
			fromFile: func(f *File) string { return f.API },
		},
	} {
		e.values[v.name] = v
	}
}

// Register registers the command line flags. It is safe to not call this at
// all, which means command line flag values are not considered.
func (e *CasterEnvironment) Register(flagSet *pflag.FlagSet) {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	e.init()

	for _, name := range []string{"query", "client-publish", "notifications",
		"key-management", "api"} {

		v := e.values[name]
		flagSet.String(v.name, v.def, v.usage+" Overrides $"+v.env+".")
		v.flag = flagSet.Lookup(v.name)
	}
}

// SetFilePath sets the location of the environment file.
func (e *CasterEnvironment) SetFilePath(path string) {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	e.filepath = path
}

// LoadExternalVars loads the environment file and the environment variables.
// A missing file or variable is not an error.
func (e *CasterEnvironment) LoadExternalVars() error {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	e.init()

	if err := e.loadFile(); err != nil {
		return serrors.Wrap("loading environment file", err)
	}
	for _, v := range e.values {
		if s, ok := os.LookupEnv(v.env); ok {
			v.fromEnv = &s
		}
	}
	return nil
}

func (e *CasterEnvironment) loadFile() error {
	if e.filepath == "" {
		e.filepath = defaultEnvironmentFile
	}
	raw, err := os.ReadFile(e.filepath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return serrors.Wrap("loading file", err)
	}
	if err := json.Unmarshal(raw, &e.file); err != nil {
		return serrors.Wrap("parsing file", err)
	}
	return nil
}

func (e *CasterEnvironment) get(name string) string {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	e.init()

	v := e.values[name]
	if v.flag != nil && v.flag.Changed {
		return v.flag.Value.String()
	}
	if v.fromEnv != nil {
		return *v.fromEnv
	}
	if s := v.fromFile(&e.file); s != "" {
		return s
	}
	return v.def
}

// Query returns the query endpoint.
func (e *CasterEnvironment) Query() string { return e.get("query") }

// ClientPublish returns the client publish endpoint.
func (e *CasterEnvironment) ClientPublish() string { return e.get("client-publish") }

// Notifications returns the notification endpoint.
func (e *CasterEnvironment) Notifications() string { return e.get("notifications") }

// KeyManagement returns the key management endpoint.
func (e *CasterEnvironment) KeyManagement() string { return e.get("key-management") }

// API returns the base URL of the management API.
func (e *CasterEnvironment) API() string { return e.get("api") }
