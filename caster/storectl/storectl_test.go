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

package storectl_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtkcaster/caster/caster/store"
	"github.com/rtkcaster/caster/caster/store/storetest"
	"github.com/rtkcaster/caster/caster/storectl"
	"github.com/rtkcaster/caster/pkg/log/testlog"
	"github.com/rtkcaster/caster/pkg/wire"
)

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	b := storetest.New(t)
	endpoint := storectl.Endpoint(time.Now().UnixNano())
	router, err := storectl.Listen(endpoint)
	require.NoError(t, err)
	defer router.Close()
	client, err := storectl.Dial(endpoint)
	require.NoError(t, err)
	defer client.Close()
	server := &storectl.Server{Store: b, Logger: testlog.NewLogger(t)}

	exchange := func(t *testing.T, send func() error) error {
		t.Helper()
		require.NoError(t, send())
		_, err := server.Handle(router)
		require.NoError(t, err)
		_, err = storectl.HandleReply(client.Socket())
		return err
	}

	start := time.Unix(1000, 0)
	rec := &wire.StationInfo{CasterID: 1, StreamID: 3, Name: "x", Format: wire.FormatCMR}
	require.NoError(t, exchange(t, func() error { return client.Insert(rec, start) }))
	got, err := b.Retrieve(ctx, 3, start.Add(5*time.Second))
	require.NoError(t, err)
	assert.Equal(t, "x", got.Name)
	assert.Equal(t, int64(5), got.Uptime)

	require.NoError(t, exchange(t, func() error {
		return client.Update(3, wire.FieldRealUpdateRate, 1.5)
	}))
	got, err = b.Retrieve(ctx, 3, start)
	require.NoError(t, err)
	assert.Equal(t, 1.5, got.RealUpdateRate)

	rec.Name = "y"
	require.NoError(t, exchange(t, func() error { return client.Replace(rec, start) }))
	got, err = b.Retrieve(ctx, 3, start)
	require.NoError(t, err)
	assert.Equal(t, "y", got.Name)

	require.NoError(t, exchange(t, func() error { return client.Delete(3) }))
	_, err = b.Retrieve(ctx, 3, start)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Updates and deletes of vanished records are not failures.
	assert.NoError(t, exchange(t, func() error {
		return client.Update(3, wire.FieldRealUpdateRate, 2.0)
	}))
	assert.NoError(t, exchange(t, func() error { return client.Delete(3) }))

	err = exchange(t, func() error { return client.Insert(&wire.StationInfo{StreamID: 4}, start) })
	require.NoError(t, err)
	err = exchange(t, func() error { return client.Insert(&wire.StationInfo{StreamID: 4}, start) })
	assert.ErrorIs(t, err, storectl.ErrRejected, "duplicate insert")

	err = exchange(t, func() error {
		_, err := client.Socket().SendBytes([]byte{0xff}, 0)
		return err
	})
	assert.ErrorIs(t, err, storectl.ErrRejected, "malformed command")
}

func TestUpdateValueType(t *testing.T) {
	client, err := storectl.Dial(storectl.Endpoint(time.Now().UnixNano()))
	require.NoError(t, err)
	defer client.Close()
	assert.Error(t, client.Update(1, wire.FieldRealUpdateRate, float32(1)))
}
