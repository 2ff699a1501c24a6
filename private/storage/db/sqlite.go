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

package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"runtime"
	"strings"
	"sync"
)

// SqliteConfig allows configuring the sqlite database instance.
type SqliteConfig struct {
	// InMemory keeps the database in memory. The path is then only used as
	// the name of the database.
	InMemory bool
}

// Sqlite is a database with exactly one open connection. The caster accesses
// its station database from a single worker, so a connection pool would only
// add lock contention.
type Sqlite struct {
	DB *sql.DB
}

// NewSqlite opens the database at path. The degree trigonometry functions are
// available on the connection.
func NewSqlite(path string, cfg *SqliteConfig) (*Sqlite, error) {
	var c SqliteConfig
	if cfg != nil {
		c = *cfg
	}
	// :memory: would give every connection its own database.
	if strings.Contains(path, ":memory:") {
		return nil, fmt.Errorf("use explicitly named memory database")
	}
	noFile, ok := strings.CutPrefix(path, "file:")

	connParams := make(url.Values)
	addPragmas(connParams)
	if c.InMemory {
		registerMemoryDB(noFile)
		connParams.Add("mode", "memory")
		connParams.Add("cache", "shared")
	}
	connURL := path + "?" + connParams.Encode()
	if !ok {
		connURL = "file:" + connURL
	}

	db, err := sql.Open(driverName(), connURL)
	if err != nil {
		if c.InMemory {
			unregisterMemoryDB(noFile)
		}
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)
	// An in-memory database disappears with its last connection.
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	s := &Sqlite{DB: db}
	if c.InMemory {
		runtime.AddCleanup(s, func(name string) { unregisterMemoryDB(name) }, noFile)
	}
	return s, nil
}

// Setup applies schema to a fresh database and records schemaVersion. An
// existing database must carry the same version.
func (db *Sqlite) Setup(schema string, schemaVersion int) error {
	var existingVersion int
	if err := db.DB.QueryRow("PRAGMA user_version;").Scan(&existingVersion); err != nil {
		return fmt.Errorf("checking database schema version: %w", err)
	}
	switch {
	case existingVersion == 0:
		if _, err := db.DB.Exec(schema); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
		_, err := db.DB.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion))
		if err != nil {
			return fmt.Errorf("writing schema version: %w", err)
		}
		return nil
	case existingVersion != schemaVersion:
		return fmt.Errorf("database schema version mismatch: expected %d, have %d",
			schemaVersion, existingVersion,
		)
	default:
		return nil
	}
}

// Ping checks that the connection is alive.
func (db *Sqlite) Ping(ctx context.Context) error {
	return db.DB.PingContext(ctx)
}

func (db *Sqlite) Close() error {
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing db: %w", err)
	}
	return nil
}

// memoryDBCheck prevents two in-memory databases with the same name, which
// would silently share their contents.
var memoryDBCheck = struct {
	mtx sync.Mutex
	dbs map[string]struct{}
}{
	dbs: make(map[string]struct{}),
}

func registerMemoryDB(name string) {
	memoryDBCheck.mtx.Lock()
	defer memoryDBCheck.mtx.Unlock()
	if _, ok := memoryDBCheck.dbs[name]; ok {
		panic(fmt.Sprintf("memory database with name %s already exists", name))
	}
	memoryDBCheck.dbs[name] = struct{}{}
}

func unregisterMemoryDB(name string) {
	memoryDBCheck.mtx.Lock()
	defer memoryDBCheck.mtx.Unlock()
	delete(memoryDBCheck.dbs, name)
}
