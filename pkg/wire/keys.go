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

// KeyGrant adds a public key to one of the trust sets.
type KeyGrant struct {
	PublicKey []byte
	// Expires is a unix timestamp in seconds, zero means never.
	Expires int64
}

func (g *KeyGrant) marshal(e *encoder) {
	e.bytes(1, g.PublicKey)
	if g.Expires != 0 {
		e.int64(2, g.Expires)
	}
}

// Unmarshal decodes b into g.
func (g *KeyGrant) Unmarshal(b []byte) error {
	*g = KeyGrant{}
	return decode(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			g.PublicKey, err = f.bytes()
		case 2:
			g.Expires, err = f.int64()
		}
		return err
	})
}

// KeyBatch is the signed content of a key management request.
type KeyBatch struct {
	Official  []KeyGrant
	Community []KeyGrant
	Blacklist []KeyGrant
	// IssuedAt is a unix timestamp in seconds.
	IssuedAt int64
}

// Len returns the total number of grants in the batch.
func (b *KeyBatch) Len() int {
	return len(b.Official) + len(b.Community) + len(b.Blacklist)
}

func (b *KeyBatch) marshal(e *encoder) {
	for i := range b.Official {
		e.message(1, &b.Official[i])
	}
	for i := range b.Community {
		e.message(2, &b.Community[i])
	}
	for i := range b.Blacklist {
		e.message(3, &b.Blacklist[i])
	}
	e.int64(4, b.IssuedAt)
}

// Marshal encodes the batch.
func (b *KeyBatch) Marshal() []byte {
	return encode(b)
}

// Unmarshal decodes raw into b.
func (b *KeyBatch) Unmarshal(raw []byte) error {
	*b = KeyBatch{}
	grant := func(f field, dst *[]KeyGrant) error {
		var g KeyGrant
		if err := f.message(&g); err != nil {
			return err
		}
		*dst = append(*dst, g)
		return nil
	}
	return decode(raw, func(f field) error {
		switch f.num {
		case 1:
			return grant(f, &b.Official)
		case 2:
			return grant(f, &b.Community)
		case 3:
			return grant(f, &b.Blacklist)
		case 4:
			var err error
			b.IssuedAt, err = f.int64()
			return err
		}
		return nil
	})
}

// KeyManagementRequest carries a KeyBatch signed in combined mode (signature
// followed by the encoded batch) with the management key.
type KeyManagementRequest struct {
	SignedBatch []byte
}

func (r *KeyManagementRequest) marshal(e *encoder) {
	e.bytes(1, r.SignedBatch)
}

// Marshal encodes the request.
func (r *KeyManagementRequest) Marshal() []byte {
	return encode(r)
}

// Unmarshal decodes b into r.
func (r *KeyManagementRequest) Unmarshal(b []byte) error {
	*r = KeyManagementRequest{}
	return decode(b, func(f field) error {
		if f.num != 1 {
			return nil
		}
		var err error
		r.SignedBatch, err = f.bytes()
		return err
	})
}

// Ack is the reply of the key management and proxy control channels.
type Ack struct {
	Succeeded bool
	Reason    FailureReason
	Detail    string
}

func (a *Ack) marshal(e *encoder) {
	e.bool(1, a.Succeeded)
	if a.Reason != FailureNone {
		e.int64(2, int64(a.Reason))
	}
	if a.Detail != "" {
		e.string(3, a.Detail)
	}
}

// Marshal encodes the ack.
func (a *Ack) Marshal() []byte {
	return encode(a)
}

// Unmarshal decodes b into a.
func (a *Ack) Unmarshal(b []byte) error {
	*a = Ack{}
	return decode(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			a.Succeeded, err = f.bool()
		case 2:
			var v int64
			v, err = f.int64()
			a.Reason = FailureReason(v)
		case 3:
			a.Detail, err = f.string()
		}
		return err
	})
}

// Failed returns a failing ack.
func Failed(reason FailureReason, detail string) *Ack {
	return &Ack{Reason: reason, Detail: detail}
}
