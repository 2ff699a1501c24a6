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

// ProxyEndpoints names the three channels of a remote caster that federation
// needs.
type ProxyEndpoints struct {
	Query   string
	Publish string
	Notify  string
}

func (p *ProxyEndpoints) marshal(e *encoder) {
	e.string(1, p.Query)
	e.string(2, p.Publish)
	e.string(3, p.Notify)
}

// Unmarshal decodes b into p.
func (p *ProxyEndpoints) Unmarshal(b []byte) error {
	*p = ProxyEndpoints{}
	return decode(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			p.Query, err = f.string()
		case 2:
			p.Publish, err = f.string()
		case 3:
			p.Notify, err = f.string()
		}
		return err
	})
}

// ProxyOp is the operation of a ProxyRequest.
type ProxyOp int

const (
	ProxyAdd ProxyOp = iota + 1
	ProxyRemove
)

// ProxyRequest asks the stream worker to subscribe to (ProxyAdd) or
// unsubscribe from (ProxyRemove) the publish channels of a remote caster.
type ProxyRequest struct {
	Op        ProxyOp
	Endpoints ProxyEndpoints
}

func (r *ProxyRequest) marshal(e *encoder) {
	switch r.Op {
	case ProxyAdd:
		e.message(1, &r.Endpoints)
	case ProxyRemove:
		e.message(2, &r.Endpoints)
	}
}

// Marshal encodes the request.
func (r *ProxyRequest) Marshal() []byte {
	return encode(r)
}

// Unmarshal decodes b into r.
func (r *ProxyRequest) Unmarshal(b []byte) error {
	*r = ProxyRequest{}
	err := decode(b, func(f field) error {
		switch f.num {
		case 1:
			r.Op = ProxyAdd
			return f.message(&r.Endpoints)
		case 2:
			r.Op = ProxyRemove
			return f.message(&r.Endpoints)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if r.Op == 0 {
		return malformed("proxy request without operation")
	}
	return nil
}
