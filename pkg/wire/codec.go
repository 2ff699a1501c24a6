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

import (
	"errors"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/rtkcaster/caster/pkg/private/serrors"
)

// ErrMalformed indicates that a message could not be decoded.
var ErrMalformed = errors.New("malformed message")

type encoder struct {
	b []byte
}

func (e *encoder) varint(num protowire.Number, v uint64) {
	e.b = protowire.AppendTag(e.b, num, protowire.VarintType)
	e.b = protowire.AppendVarint(e.b, v)
}

func (e *encoder) int64(num protowire.Number, v int64) {
	e.varint(num, uint64(v))
}

func (e *encoder) bool(num protowire.Number, v bool) {
	e.varint(num, protowire.EncodeBool(v))
}

func (e *encoder) double(num protowire.Number, v float64) {
	e.b = protowire.AppendTag(e.b, num, protowire.Fixed64Type)
	e.b = protowire.AppendFixed64(e.b, math.Float64bits(v))
}

func (e *encoder) bytes(num protowire.Number, v []byte) {
	e.b = protowire.AppendTag(e.b, num, protowire.BytesType)
	e.b = protowire.AppendBytes(e.b, v)
}

func (e *encoder) string(num protowire.Number, v string) {
	e.b = protowire.AppendTag(e.b, num, protowire.BytesType)
	e.b = protowire.AppendString(e.b, v)
}

type marshaler interface {
	marshal(e *encoder)
}

func (e *encoder) message(num protowire.Number, m marshaler) {
	var sub encoder
	m.marshal(&sub)
	e.bytes(num, sub.b)
}

func encode(m marshaler) []byte {
	var e encoder
	m.marshal(&e)
	return e.b
}

// field is a single decoded field. Only one of u and b is meaningful,
// depending on typ.
type field struct {
	num protowire.Number
	typ protowire.Type
	u   uint64
	b   []byte
}

func malformed(msg string, errCtx ...any) error {
	return serrors.JoinNoStack(ErrMalformed, nil, append([]any{"detail", msg}, errCtx...)...)
}

// decode walks all fields of b. Unknown fields are passed to fn as well and
// should be ignored by the caller.
func decode(b []byte, fn func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return serrors.JoinNoStack(ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]
		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.u, n = protowire.ConsumeVarint(b)
		case protowire.Fixed64Type:
			f.u, n = protowire.ConsumeFixed64(b)
		case protowire.Fixed32Type:
			var v uint32
			v, n = protowire.ConsumeFixed32(b)
			f.u = uint64(v)
		case protowire.BytesType:
			f.b, n = protowire.ConsumeBytes(b)
		default:
			return malformed("unsupported wire type", "field", num, "type", typ)
		}
		if n < 0 {
			return serrors.JoinNoStack(ErrMalformed, protowire.ParseError(n), "field", num)
		}
		b = b[n:]
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

func (f field) want(typ protowire.Type) error {
	if f.typ != typ {
		return malformed("unexpected wire type", "field", f.num, "type", f.typ)
	}
	return nil
}

func (f field) int64() (int64, error) {
	if err := f.want(protowire.VarintType); err != nil {
		return 0, err
	}
	return int64(f.u), nil
}

func (f field) bool() (bool, error) {
	if err := f.want(protowire.VarintType); err != nil {
		return false, err
	}
	return protowire.DecodeBool(f.u), nil
}

func (f field) double() (float64, error) {
	if err := f.want(protowire.Fixed64Type); err != nil {
		return 0, err
	}
	return math.Float64frombits(f.u), nil
}

func (f field) bytes() ([]byte, error) {
	if err := f.want(protowire.BytesType); err != nil {
		return nil, err
	}
	return append([]byte(nil), f.b...), nil
}

func (f field) string() (string, error) {
	if err := f.want(protowire.BytesType); err != nil {
		return "", err
	}
	return string(f.b), nil
}

// varints decodes a repeated varint field occurrence, accepting both the
// packed and the unpacked representation.
func (f field) varints() ([]uint64, error) {
	if f.typ == protowire.VarintType {
		return []uint64{f.u}, nil
	}
	if err := f.want(protowire.BytesType); err != nil {
		return nil, err
	}
	var out []uint64
	for b := f.b; len(b) > 0; {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, serrors.JoinNoStack(ErrMalformed, protowire.ParseError(n), "field", f.num)
		}
		out = append(out, v)
		b = b[n:]
	}
	return out, nil
}

type unmarshaler interface {
	Unmarshal(b []byte) error
}

func (f field) message(m unmarshaler) error {
	if err := f.want(protowire.BytesType); err != nil {
		return err
	}
	return m.Unmarshal(f.b)
}
