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

// Package query compiles structured station queries into parameterized SQL.
//
// A request is a disjunction of subqueries; each subquery is a conjunction of
// its conditions. The compiled statement selects the IDs of matching records
// from the basestation table. Uptime is not stored, so uptime conditions are
// rewritten against the start time relative to the compilation time.
package query

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rtkcaster/caster/caster/store"
	"github.com/rtkcaster/caster/pkg/private/serrors"
	"github.com/rtkcaster/caster/pkg/wire"
)

const (
	// MaxParams is the highest number of bound parameters SQLite accepts in a
	// single statement.
	MaxParams = 999
	// EarthRadius is the mean earth radius in meters used for great-circle
	// distances.
	EarthRadius = 6371000.0

	metersPerDegree = EarthRadius * math.Pi / 180
)

var (
	// ErrTooComplex is returned when a request needs more than MaxParams
	// bound parameters.
	ErrTooComplex = errors.New("query too complex")
	// ErrInvalid is returned for requests with out of range operators or
	// values.
	ErrInvalid = errors.New("invalid query")
)

// Query is a compiled statement with its bound arguments.
type Query struct {
	SQL  string
	Args []any
}

var relations = map[wire.Relation]string{
	wire.LessThan:       "<",
	wire.LessOrEqual:    "<=",
	wire.Equal:          "=",
	wire.NotEqual:       "!=",
	wire.GreaterThan:    ">",
	wire.GreaterOrEqual: ">=",
}

// inverted mirrors a relation for a column that decreases when the queried
// attribute increases.
var inverted = map[wire.Relation]wire.Relation{
	wire.LessThan:       wire.GreaterThan,
	wire.LessOrEqual:    wire.GreaterOrEqual,
	wire.Equal:          wire.Equal,
	wire.NotEqual:       wire.NotEqual,
	wire.GreaterThan:    wire.LessThan,
	wire.GreaterOrEqual: wire.LessOrEqual,
}

// Compile translates req into a statement selecting matching record IDs. Now
// is the reference time for uptime conditions.
func Compile(req *wire.QueryRequest, now time.Time) (Query, error) {
	var b builder
	b.now = float64(now.UnixNano()) / 1e9
	var clauses []string
	for i := range req.SubQueries {
		conds, err := b.subQuery(&req.SubQueries[i])
		if err != nil {
			return Query{}, serrors.Wrap("compiling subquery", err, "index", i)
		}
		// A subquery without conditions contributes no clause.
		if len(conds) == 0 {
			continue
		}
		clauses = append(clauses, "("+strings.Join(conds, " AND ")+")")
	}
	if len(b.args) > MaxParams {
		return Query{}, serrors.JoinNoStack(ErrTooComplex, nil,
			"params", len(b.args), "max", MaxParams)
	}
	stmt := []string{"SELECT id FROM " + store.Table}
	var args []any
	if len(clauses) > 0 {
		stmt = append(stmt, "WHERE "+strings.Join(clauses, " OR "))
		args = b.args
	}
	stmt = append(stmt, "ORDER BY id")
	return Query{SQL: strings.Join(stmt, "\n"), Args: args}, nil
}

type builder struct {
	now  float64
	args []any
}

func (b *builder) subQuery(q *wire.SubQuery) ([]string, error) {
	var conds []string
	if len(q.Classes) > 0 {
		vals := make([]any, 0, len(q.Classes))
		for _, c := range q.Classes {
			if !c.Valid() {
				return nil, serrors.JoinNoStack(ErrInvalid, nil, "class", c)
			}
			vals = append(vals, int64(c))
		}
		conds = append(conds, b.in("station_class", vals))
	}
	if len(q.Formats) > 0 {
		vals := make([]any, 0, len(q.Formats))
		for _, f := range q.Formats {
			if !f.Valid() {
				return nil, serrors.JoinNoStack(ErrInvalid, nil, "format", f)
			}
			vals = append(vals, int64(f))
		}
		conds = append(conds, b.in("message_format", vals))
	}
	numeric := []struct {
		col   string
		conds []wire.DoubleCondition
	}{
		{col: "latitude", conds: q.Latitude},
		{col: "longitude", conds: q.Longitude},
		{col: "real_update_rate", conds: q.RealUpdateRate},
		{col: "expected_update_rate", conds: q.ExpectedUpdateRate},
	}
	for _, n := range numeric {
		for _, c := range n.conds {
			cond, err := b.compare(n.col, c.Relation, c.Value)
			if err != nil {
				return nil, err
			}
			conds = append(conds, cond)
		}
	}
	for _, c := range q.Uptime {
		if !c.Relation.Valid() {
			return nil, serrors.JoinNoStack(ErrInvalid, nil, "relation", c.Relation)
		}
		// uptime >= v holds exactly when start_time <= now - v.
		cond, err := b.compare("start_time", inverted[c.Relation], b.now-c.Value)
		if err != nil {
			return nil, err
		}
		conds = append(conds, cond)
	}
	if q.Name != nil {
		switch q.Name.Relation {
		case wire.NameEqual:
			conds = append(conds, b.bind("informal_name = ?", q.Name.Value))
		case wire.NameLike:
			conds = append(conds, b.bind("informal_name LIKE ?", q.Name.Value))
		default:
			return nil, serrors.JoinNoStack(ErrInvalid, nil, "name_relation", q.Name.Relation)
		}
	}
	if len(q.StreamIDs) > 0 {
		vals := make([]any, 0, len(q.StreamIDs))
		for _, id := range q.StreamIDs {
			vals = append(vals, id)
		}
		conds = append(conds, b.in("id", vals))
	}
	if len(q.SourcePublicKeys) > 0 {
		vals := make([]any, 0, len(q.SourcePublicKeys))
		for _, k := range q.SourcePublicKeys {
			vals = append(vals, k)
		}
		conds = append(conds, b.in("source_public_key", vals))
	}
	if r := q.Region; r != nil {
		if !finite(r.Latitude, r.Longitude, r.Radius) || r.Radius < 0 {
			return nil, serrors.JoinNoStack(ErrInvalid, nil, "radius", r.Radius)
		}
		conds = append(conds, b.region(r))
	}
	return conds, nil
}

func (b *builder) compare(col string, rel wire.Relation, v float64) (string, error) {
	op, ok := relations[rel]
	if !ok {
		return "", serrors.JoinNoStack(ErrInvalid, nil, "relation", rel)
	}
	if !finite(v) {
		return "", serrors.JoinNoStack(ErrInvalid, nil, "column", col, "value", v)
	}
	return b.bind(col+" "+op+" ?", v), nil
}

func (b *builder) in(col string, vals []any) string {
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(vals)), ", ")
	return b.bind(col+" IN ("+marks+")", vals...)
}

// region selects records strictly closer than the radius. The distance uses
// the spherical law of cosines on degree arguments.
func (b *builder) region(r *wire.CircularRegion) string {
	dist := fmt.Sprintf("%v * deg_acos(deg_sin(?) * deg_sin(latitude) + "+
		"deg_cos(?) * deg_cos(latitude) * deg_cos(longitude - ?))", metersPerDegree)
	return b.bind("id IN (SELECT id FROM (SELECT id, "+dist+" AS d FROM "+store.Table+
		") GROUP BY id, d HAVING d < ?)", r.Latitude, r.Latitude, r.Longitude, r.Radius)
}

func (b *builder) bind(cond string, args ...any) string {
	b.args = append(b.args, args...)
	return cond
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
