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

// Package storetest provides in-memory stores for tests.
package storetest

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rtkcaster/caster/caster/store"
	"github.com/rtkcaster/caster/private/storage/db"
)

var seq atomic.Uint64

// New returns an empty in-memory store that is closed when the test ends.
func New(t testing.TB) *store.Backend {
	t.Helper()
	name := fmt.Sprintf("storetest-%d", seq.Add(1))
	b, err := store.New(name, &db.SqliteConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}
