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

//go:build sqlite_mattn

package db

import (
	"database/sql"
	"net/url"

	"github.com/mattn/go-sqlite3"
)

const mattnDriver = "sqlite3_caster"

func init() {
	sql.Register(mattnDriver, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			for name, fn := range map[string]func(float64) float64{
				FuncDegSin:  DegSin,
				FuncDegCos:  DegCos,
				FuncDegAcos: DegAcos,
			} {
				if err := conn.RegisterFunc(name, fn, true); err != nil {
					return err
				}
			}
			return nil
		},
	})
}

func addPragmas(q url.Values) {
	q.Set("_foreign_keys", "1")
	q.Set("_journal_mode", "WAL")
	q.Set("_busy_timeout", "1000")
	q.Set("_txlock", "immediate")
}

func driverName() string {
	return mattnDriver
}
