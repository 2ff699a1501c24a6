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

//go:build !sqlite_mattn

package db

import (
	"database/sql/driver"
	"fmt"
	"net/url"

	"modernc.org/sqlite"
)

func init() {
	for name, fn := range map[string]func(float64) float64{
		FuncDegSin:  DegSin,
		FuncDegCos:  DegCos,
		FuncDegAcos: DegAcos,
	} {
		sqlite.MustRegisterDeterministicScalarFunction(name, 1,
			func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
				if args[0] == nil {
					return nil, nil
				}
				x, ok := toFloat(args[0])
				if !ok {
					return nil, fmt.Errorf("%s: unsupported argument type %T", name, args[0])
				}
				return fn(x), nil
			},
		)
	}
}

func addPragmas(q url.Values) {
	// Start transactions with BEGIN IMMEDIATE so busy_timeout is respected.
	q.Add("_txlock", "immediate")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "busy_timeout(1000)")
	q.Add("_pragma", "synchronous(NORMAL)")
	q.Add("_pragma", "foreign_keys(1)")
}

func driverName() string {
	return "sqlite"
}
