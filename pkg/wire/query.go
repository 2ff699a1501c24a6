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

package wire

import "google.golang.org/protobuf/encoding/protowire"

// DoubleCondition compares a numeric attribute against Value.
type DoubleCondition struct {
	Relation Relation
	Value    float64
}

func (c *DoubleCondition) marshal(e *encoder) {
	e.int64(1, int64(c.Relation))
	e.double(2, c.Value)
}

// Unmarshal decodes b into c.
func (c *DoubleCondition) Unmarshal(b []byte) error {
	*c = DoubleCondition{}
	return decode(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			var v int64
			v, err = f.int64()
			c.Relation = Relation(v)
		case 2:
			c.Value, err = f.double()
		}
		return err
	})
}

// NameCondition matches the informal name, either exactly or with a SQL LIKE
// pattern.
type NameCondition struct {
	Relation NameRelation
	Value    string
}

func (c *NameCondition) marshal(e *encoder) {
	e.int64(1, int64(c.Relation))
	e.string(2, c.Value)
}

// Unmarshal decodes b into c.
func (c *NameCondition) Unmarshal(b []byte) error {
	*c = NameCondition{}
	return decode(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			var v int64
			v, err = f.int64()
			c.Relation = NameRelation(v)
		case 2:
			c.Value, err = f.string()
		}
		return err
	})
}

// CircularRegion selects stations within Radius meters of a point given in
// degrees.
type CircularRegion struct {
	Latitude  float64
	Longitude float64
	Radius    float64
}

func (c *CircularRegion) marshal(e *encoder) {
	e.double(1, c.Latitude)
	e.double(2, c.Longitude)
	e.double(3, c.Radius)
}

// Unmarshal decodes b into c.
func (c *CircularRegion) Unmarshal(b []byte) error {
	*c = CircularRegion{}
	return decode(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			c.Latitude, err = f.double()
		case 2:
			c.Longitude, err = f.double()
		case 3:
			c.Radius, err = f.double()
		}
		return err
	})
}

// SubQuery is a conjunction of conditions. An empty SubQuery adds no clause to
// the disjunction of its request.
type SubQuery struct {
	Classes            []StationClass
	Formats            []MessageFormat
	Latitude           []DoubleCondition
	Longitude          []DoubleCondition
	Uptime             []DoubleCondition
	RealUpdateRate     []DoubleCondition
	ExpectedUpdateRate []DoubleCondition
	Name               *NameCondition
	StreamIDs          []int64
	SourcePublicKeys   [][]byte
	Region             *CircularRegion
}

func (q *SubQuery) marshal(e *encoder) {
	for _, c := range q.Classes {
		e.int64(1, int64(c))
	}
	for _, f := range q.Formats {
		e.int64(2, int64(f))
	}
	conds := []struct {
		num   protowire.Number
		conds []DoubleCondition
	}{
		{3, q.Latitude},
		{4, q.Longitude},
		{5, q.Uptime},
		{6, q.RealUpdateRate},
		{7, q.ExpectedUpdateRate},
	}
	for _, set := range conds {
		for i := range set.conds {
			e.message(set.num, &set.conds[i])
		}
	}
	if q.Name != nil {
		e.message(8, q.Name)
	}
	for _, id := range q.StreamIDs {
		e.int64(9, id)
	}
	for _, k := range q.SourcePublicKeys {
		e.bytes(10, k)
	}
	if q.Region != nil {
		e.message(11, q.Region)
	}
}

// Unmarshal decodes b into q.
func (q *SubQuery) Unmarshal(b []byte) error {
	*q = SubQuery{}
	cond := func(f field, dst *[]DoubleCondition) error {
		var c DoubleCondition
		if err := f.message(&c); err != nil {
			return err
		}
		*dst = append(*dst, c)
		return nil
	}
	return decode(b, func(f field) error {
		switch f.num {
		case 1:
			vs, err := f.varints()
			if err != nil {
				return err
			}
			for _, v := range vs {
				q.Classes = append(q.Classes, StationClass(int64(v)))
			}
		case 2:
			vs, err := f.varints()
			if err != nil {
				return err
			}
			for _, v := range vs {
				q.Formats = append(q.Formats, MessageFormat(int64(v)))
			}
		case 3:
			return cond(f, &q.Latitude)
		case 4:
			return cond(f, &q.Longitude)
		case 5:
			return cond(f, &q.Uptime)
		case 6:
			return cond(f, &q.RealUpdateRate)
		case 7:
			return cond(f, &q.ExpectedUpdateRate)
		case 8:
			q.Name = &NameCondition{}
			return f.message(q.Name)
		case 9:
			vs, err := f.varints()
			if err != nil {
				return err
			}
			for _, v := range vs {
				q.StreamIDs = append(q.StreamIDs, int64(v))
			}
		case 10:
			k, err := f.bytes()
			if err != nil {
				return err
			}
			q.SourcePublicKeys = append(q.SourcePublicKeys, k)
		case 11:
			q.Region = &CircularRegion{}
			return f.message(q.Region)
		}
		return nil
	})
}

// QueryRequest is a disjunction of subqueries. A request without any
// non-empty subquery matches every station.
type QueryRequest struct {
	SubQueries []SubQuery
}

func (r *QueryRequest) marshal(e *encoder) {
	for i := range r.SubQueries {
		e.message(1, &r.SubQueries[i])
	}
}

// Marshal encodes the request.
func (r *QueryRequest) Marshal() []byte {
	return encode(r)
}

// Unmarshal decodes b into r.
func (r *QueryRequest) Unmarshal(b []byte) error {
	*r = QueryRequest{}
	return decode(b, func(f field) error {
		if f.num != 1 {
			return nil
		}
		var q SubQuery
		if err := f.message(&q); err != nil {
			return err
		}
		r.SubQueries = append(r.SubQueries, q)
		return nil
	})
}

// QueryReply carries either the matching stations or a failure reason.
type QueryReply struct {
	CasterID int64
	Stations []*StationInfo
	Reason   FailureReason
}

func (r *QueryReply) marshal(e *encoder) {
	e.int64(1, r.CasterID)
	for _, s := range r.Stations {
		e.message(2, s)
	}
	if r.Reason != FailureNone {
		e.int64(3, int64(r.Reason))
	}
}

// Marshal encodes the reply.
func (r *QueryReply) Marshal() []byte {
	return encode(r)
}

// Unmarshal decodes b into r.
func (r *QueryReply) Unmarshal(b []byte) error {
	*r = QueryReply{}
	return decode(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			r.CasterID, err = f.int64()
		case 2:
			s := &StationInfo{}
			if err = f.message(s); err == nil {
				r.Stations = append(r.Stations, s)
			}
		case 3:
			var v int64
			v, err = f.int64()
			r.Reason = FailureReason(v)
		}
		return err
	})
}
