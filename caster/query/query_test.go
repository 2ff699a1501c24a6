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

package query_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtkcaster/caster/caster/query"
	"github.com/rtkcaster/caster/caster/store"
	"github.com/rtkcaster/caster/caster/store/storetest"
	"github.com/rtkcaster/caster/pkg/wire"
)

func TestCompileShape(t *testing.T) {
	now := time.Unix(1000, 0)
	tests := map[string]struct {
		Request  *wire.QueryRequest
		Contains []string
		Excludes []string
		Args     []any
	}{
		"no subqueries": {
			Request:  &wire.QueryRequest{},
			Excludes: []string{"WHERE"},
		},
		"empty subquery is omitted": {
			Request: &wire.QueryRequest{SubQueries: []wire.SubQuery{
				{},
				{Classes: []wire.StationClass{wire.ClassOfficial}},
			}},
			Contains: []string{"WHERE (station_class IN (?))\n"},
			Excludes: []string{" OR "},
			Args:     []any{int64(0)},
		},
		"only empty subqueries": {
			Request:  &wire.QueryRequest{SubQueries: []wire.SubQuery{{}, {}}},
			Excludes: []string{"WHERE"},
		},
		"conjunction": {
			Request: &wire.QueryRequest{SubQueries: []wire.SubQuery{{
				Classes:  []wire.StationClass{wire.ClassOfficial, wire.ClassCommunity},
				Latitude: []wire.DoubleCondition{{Relation: wire.GreaterOrEqual, Value: 1}},
			}}},
			Contains: []string{"WHERE (station_class IN (?, ?) AND latitude >= ?)"},
			Args:     []any{int64(0), int64(2), 1.0},
		},
		"disjunction": {
			Request: &wire.QueryRequest{SubQueries: []wire.SubQuery{
				{Name: &wire.NameCondition{Relation: wire.NameLike, Value: "a%"}},
				{StreamIDs: []int64{3, 4}},
			}},
			Contains: []string{"(informal_name LIKE ?) OR (id IN (?, ?))"},
			Args:     []any{"a%", int64(3), int64(4)},
		},
		"uptime is inverted": {
			Request: &wire.QueryRequest{SubQueries: []wire.SubQuery{{
				Uptime: []wire.DoubleCondition{{Relation: wire.GreaterOrEqual, Value: 100}},
			}}},
			Contains: []string{"start_time <= ?"},
			Args:     []any{900.0},
		},
		"region": {
			Request: &wire.QueryRequest{SubQueries: []wire.SubQuery{{
				Region: &wire.CircularRegion{Latitude: 1, Longitude: 2, Radius: 10},
			}}},
			Contains: []string{"deg_acos(", "HAVING d < ?"},
			Args:     []any{1.0, 1.0, 2.0, 10.0},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			q, err := query.Compile(tc.Request, now)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(q.SQL, "SELECT id FROM "+store.Table))
			for _, c := range tc.Contains {
				assert.Contains(t, q.SQL, c)
			}
			for _, c := range tc.Excludes {
				assert.NotContains(t, q.SQL, c)
			}
			assert.Equal(t, tc.Args, q.Args)
		})
	}
}

func TestCompileErrors(t *testing.T) {
	ids := make([]int64, query.MaxParams+1)
	for i := range ids {
		ids[i] = int64(i)
	}
	tests := map[string]struct {
		Request *wire.QueryRequest
		Err     error
	}{
		"too many parameters": {
			Request: &wire.QueryRequest{SubQueries: []wire.SubQuery{{StreamIDs: ids}}},
			Err:     query.ErrTooComplex,
		},
		"too many parameters across subqueries": {
			Request: &wire.QueryRequest{SubQueries: []wire.SubQuery{
				{StreamIDs: ids[:500]},
				{StreamIDs: ids[500:]},
			}},
			Err: query.ErrTooComplex,
		},
		"too many parameters next to empty subquery": {
			Request: &wire.QueryRequest{SubQueries: []wire.SubQuery{
				{},
				{StreamIDs: append(ids, ids[:199]...)},
			}},
			Err: query.ErrTooComplex,
		},
		"bad relation": {
			Request: &wire.QueryRequest{SubQueries: []wire.SubQuery{{
				Latitude: []wire.DoubleCondition{{Relation: 17, Value: 1}},
			}}},
			Err: query.ErrInvalid,
		},
		"bad uptime relation": {
			Request: &wire.QueryRequest{SubQueries: []wire.SubQuery{{
				Uptime: []wire.DoubleCondition{{Relation: -1, Value: 1}},
			}}},
			Err: query.ErrInvalid,
		},
		"bad class": {
			Request: &wire.QueryRequest{SubQueries: []wire.SubQuery{{
				Classes: []wire.StationClass{9},
			}}},
			Err: query.ErrInvalid,
		},
		"negative radius": {
			Request: &wire.QueryRequest{SubQueries: []wire.SubQuery{{
				Region: &wire.CircularRegion{Radius: -1},
			}}},
			Err: query.ErrInvalid,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := query.Compile(tc.Request, time.Now())
			assert.ErrorIs(t, err, tc.Err)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	b := storetest.New(t)
	start := time.Now().Add(-30 * time.Second)
	rec := &wire.StationInfo{
		CasterID:           1,
		StreamID:           1,
		Latitude:           1.0,
		Longitude:          2.0,
		ExpectedUpdateRate: 3.0,
		Format:             wire.FormatRTCMv3,
		Class:              wire.ClassCommunity,
		Name:               "x",
		SourcePublicKey:    []byte{1, 2, 3},
	}
	require.NoError(t, b.Store(ctx, rec, start))
	far := rec.Clone()
	far.StreamID = 2
	far.Latitude = 45
	far.Name = "far away"
	far.SourcePublicKey = nil
	require.NoError(t, b.Store(ctx, far, start.Add(20*time.Second)))

	tests := map[string]struct {
		Sub      wire.SubQuery
		Expected []int64
	}{
		"empty filter": {
			Expected: []int64{1, 2},
		},
		"class mismatch": {
			Sub: wire.SubQuery{Classes: []wire.StationClass{wire.ClassOfficial}},
		},
		"format": {
			Sub:      wire.SubQuery{Formats: []wire.MessageFormat{wire.FormatRTCMv3}},
			Expected: []int64{1, 2},
		},
		"region 10m": {
			Sub: wire.SubQuery{
				Region: &wire.CircularRegion{Latitude: 1, Longitude: 2, Radius: 10},
			},
			Expected: []int64{1},
		},
		"region 0m": {
			Sub: wire.SubQuery{
				Region: &wire.CircularRegion{Latitude: 1, Longitude: 2, Radius: 0},
			},
		},
		"region large": {
			Sub: wire.SubQuery{
				Region: &wire.CircularRegion{Latitude: 1, Longitude: 2, Radius: 6_000_000},
			},
			Expected: []int64{1, 2},
		},
		"latitude range": {
			Sub: wire.SubQuery{Latitude: []wire.DoubleCondition{
				{Relation: wire.GreaterThan, Value: 0},
				{Relation: wire.LessThan, Value: 10},
			}},
			Expected: []int64{1},
		},
		"uptime at least 20s": {
			Sub: wire.SubQuery{Uptime: []wire.DoubleCondition{
				{Relation: wire.GreaterOrEqual, Value: 20},
			}},
			Expected: []int64{1},
		},
		"uptime below 20s": {
			Sub: wire.SubQuery{Uptime: []wire.DoubleCondition{
				{Relation: wire.LessThan, Value: 20},
			}},
			Expected: []int64{2},
		},
		"name exact": {
			Sub:      wire.SubQuery{Name: &wire.NameCondition{Value: "x"}},
			Expected: []int64{1},
		},
		"name like": {
			Sub:      wire.SubQuery{Name: &wire.NameCondition{Relation: wire.NameLike, Value: "far%"}},
			Expected: []int64{2},
		},
		"stream ids": {
			Sub:      wire.SubQuery{StreamIDs: []int64{2, 5}},
			Expected: []int64{2},
		},
		"source key": {
			Sub:      wire.SubQuery{SourcePublicKeys: [][]byte{{1, 2, 3}}},
			Expected: []int64{1},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			now := time.Now()
			req := &wire.QueryRequest{SubQueries: []wire.SubQuery{tc.Sub}}
			q, err := query.Compile(req, now)
			require.NoError(t, err)
			ids, err := b.IDs(ctx, q.SQL, q.Args...)
			require.NoError(t, err)
			assert.Equal(t, tc.Expected, ids)
		})
	}

	t.Run("hydrated uptime", func(t *testing.T) {
		now := time.Now()
		q, err := query.Compile(&wire.QueryRequest{}, now)
		require.NoError(t, err)
		ids, err := b.IDs(ctx, q.SQL, q.Args...)
		require.NoError(t, err)
		recs, err := b.Hydrate(ctx, ids, now)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, "x", recs[0].Name)
		assert.InDelta(t, 30, recs[0].Uptime, 1)
	})
}
