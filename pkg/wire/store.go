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

import "fmt"

// StoreOp is the operation of a StoreCommand.
type StoreOp int

const (
	StoreInsert StoreOp = iota + 1
	StoreDelete
	StoreUpdate
	StoreReplace
)

func (o StoreOp) String() string {
	switch o {
	case StoreInsert:
		return "insert"
	case StoreDelete:
		return "delete"
	case StoreUpdate:
		return "update"
	case StoreReplace:
		return "replace"
	default:
		return fmt.Sprintf("store-op(%d)", int(o))
	}
}

// StoreCommand is a mutation sent to the worker that owns the station store.
// Station and StartTime are set for StoreInsert and StoreReplace; ID is set
// for StoreDelete and StoreUpdate; Field and Value only for StoreUpdate.
type StoreCommand struct {
	Op      StoreOp
	Station *StationInfo
	// StartTime is a unix timestamp in nanoseconds.
	StartTime int64
	ID        int64
	Field     StationField
	// Value is a float64, an int64 or a string.
	Value any
}

type storeRecord struct {
	station   *StationInfo
	startTime int64
}

func (r *storeRecord) marshal(e *encoder) {
	e.message(1, r.station)
	e.int64(2, r.startTime)
}

func (r *storeRecord) Unmarshal(b []byte) error {
	return decode(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			r.station = &StationInfo{}
			err = f.message(r.station)
		case 2:
			r.startTime, err = f.int64()
		}
		return err
	})
}

type storeUpdate struct {
	id    int64
	field StationField
	value any
}

func (u *storeUpdate) marshal(e *encoder) {
	e.int64(1, u.id)
	e.int64(2, int64(u.field))
	switch v := u.value.(type) {
	case float64:
		e.double(3, v)
	case int64:
		e.int64(4, v)
	case string:
		e.string(5, v)
	}
}

func (u *storeUpdate) Unmarshal(b []byte) error {
	return decode(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			u.id, err = f.int64()
		case 2:
			var v int64
			v, err = f.int64()
			u.field = StationField(v)
		case 3:
			u.value, err = f.double()
		case 4:
			u.value, err = f.int64()
		case 5:
			u.value, err = f.string()
		}
		return err
	})
}

type storeID struct {
	id int64
}

func (s *storeID) marshal(e *encoder) {
	e.int64(1, s.id)
}

func (s *storeID) Unmarshal(b []byte) error {
	return decode(b, func(f field) error {
		var err error
		if f.num == 1 {
			s.id, err = f.int64()
		}
		return err
	})
}

func (c *StoreCommand) marshal(e *encoder) {
	switch c.Op {
	case StoreInsert:
		e.message(1, &storeRecord{station: c.Station, startTime: c.StartTime})
	case StoreDelete:
		e.message(2, &storeID{id: c.ID})
	case StoreUpdate:
		e.message(3, &storeUpdate{id: c.ID, field: c.Field, value: c.Value})
	case StoreReplace:
		e.message(4, &storeRecord{station: c.Station, startTime: c.StartTime})
	}
}

// Marshal encodes the command.
func (c *StoreCommand) Marshal() []byte {
	return encode(c)
}

// Unmarshal decodes b into c.
func (c *StoreCommand) Unmarshal(b []byte) error {
	*c = StoreCommand{}
	err := decode(b, func(f field) error {
		switch f.num {
		case 1, 4:
			var r storeRecord
			if err := f.message(&r); err != nil {
				return err
			}
			c.Op = StoreInsert
			if f.num == 4 {
				c.Op = StoreReplace
			}
			c.Station, c.StartTime = r.station, r.startTime
		case 2:
			var s storeID
			if err := f.message(&s); err != nil {
				return err
			}
			c.Op, c.ID = StoreDelete, s.id
		case 3:
			var u storeUpdate
			if err := f.message(&u); err != nil {
				return err
			}
			c.Op, c.ID, c.Field, c.Value = StoreUpdate, u.id, u.field, u.value
		}
		return nil
	})
	if err != nil {
		return err
	}
	switch {
	case c.Op == 0:
		return malformed("store command without operation")
	case (c.Op == StoreInsert || c.Op == StoreReplace) && c.Station == nil:
		return malformed("store command without station", "op", c.Op)
	case c.Op == StoreUpdate && c.Value == nil:
		return malformed("store update without value")
	}
	return nil
}
