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

// Signature is a detached signature over a permissions blob.
type Signature struct {
	PublicKey []byte
	Signature []byte
}

func (s *Signature) marshal(e *encoder) {
	e.bytes(1, s.PublicKey)
	e.bytes(2, s.Signature)
}

// Unmarshal decodes b into s.
func (s *Signature) Unmarshal(b []byte) error {
	*s = Signature{}
	return decode(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			s.PublicKey, err = f.bytes()
		case 2:
			s.Signature, err = f.bytes()
		}
		return err
	})
}

// Permissions is the content of the permissions blob of a credentials bundle.
// It names the connection key the session authenticates with.
type Permissions struct {
	PublicKey []byte
	// ValidUntil is a unix timestamp in seconds. Zero means unset, which is
	// rejected at registration.
	ValidUntil int64
}

func (p *Permissions) marshal(e *encoder) {
	e.bytes(1, p.PublicKey)
	if p.ValidUntil != 0 {
		e.int64(2, p.ValidUntil)
	}
}

// Marshal encodes the permissions.
func (p *Permissions) Marshal() []byte {
	return encode(p)
}

// Unmarshal decodes b into p.
func (p *Permissions) Unmarshal(b []byte) error {
	*p = Permissions{}
	return decode(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			p.PublicKey, err = f.bytes()
		case 2:
			p.ValidUntil, err = f.int64()
		}
		return err
	})
}

// Credentials is a permissions blob plus one or more signatures over it.
type Credentials struct {
	Permissions []byte
	Signatures  []Signature
}

func (c *Credentials) marshal(e *encoder) {
	e.bytes(1, c.Permissions)
	for i := range c.Signatures {
		e.message(2, &c.Signatures[i])
	}
}

// Marshal encodes the credentials.
func (c *Credentials) Marshal() []byte {
	return encode(c)
}

// Unmarshal decodes b into c.
func (c *Credentials) Unmarshal(b []byte) error {
	*c = Credentials{}
	return decode(b, func(f field) error {
		switch f.num {
		case 1:
			var err error
			c.Permissions, err = f.bytes()
			return err
		case 2:
			var s Signature
			if err := f.message(&s); err != nil {
				return err
			}
			c.Signatures = append(c.Signatures, s)
		}
		return nil
	})
}

// RegistrationRequest is the first frame a transmitter sends.
type RegistrationRequest struct {
	Station     StationInfo
	Credentials *Credentials

	hasStation bool
}

// HasStation reports whether the decoded request carried station info.
func (r *RegistrationRequest) HasStation() bool {
	return r.hasStation
}

func (r *RegistrationRequest) marshal(e *encoder) {
	e.message(1, &r.Station)
	if r.Credentials != nil {
		e.message(2, r.Credentials)
	}
}

// Marshal encodes the request.
func (r *RegistrationRequest) Marshal() []byte {
	return encode(r)
}

// Unmarshal decodes b into r.
func (r *RegistrationRequest) Unmarshal(b []byte) error {
	*r = RegistrationRequest{}
	return decode(b, func(f field) error {
		switch f.num {
		case 1:
			r.hasStation = true
			return f.message(&r.Station)
		case 2:
			r.Credentials = &Credentials{}
			return f.message(r.Credentials)
		}
		return nil
	})
}

// RegistrationReply answers a RegistrationRequest.
type RegistrationReply struct {
	Succeeded bool
	Reason    FailureReason
	CasterID  int64
	StreamID  int64
}

func (r *RegistrationReply) marshal(e *encoder) {
	e.bool(1, r.Succeeded)
	if r.Reason != FailureNone {
		e.int64(2, int64(r.Reason))
	}
	if r.Succeeded {
		e.int64(3, r.CasterID)
		e.int64(4, r.StreamID)
	}
}

// Marshal encodes the reply.
func (r *RegistrationReply) Marshal() []byte {
	return encode(r)
}

// Unmarshal decodes b into r.
func (r *RegistrationReply) Unmarshal(b []byte) error {
	*r = RegistrationReply{}
	return decode(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			r.Succeeded, err = f.bool()
		case 2:
			var v int64
			v, err = f.int64()
			r.Reason = FailureReason(v)
		case 3:
			r.CasterID, err = f.int64()
		case 4:
			r.StreamID, err = f.int64()
		}
		return err
	})
}
