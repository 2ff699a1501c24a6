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

// StationField identifies a field of StationInfo for presence checks.
type StationField uint16

const (
	FieldCasterID StationField = 1 << iota
	FieldStreamID
	FieldLatitude
	FieldLongitude
	FieldExpectedUpdateRate
	FieldRealUpdateRate
	FieldUptime
	FieldFormat
	FieldClass
	FieldName
)

// StationInfo is the metadata of a basestation.
type StationInfo struct {
	CasterID           int64
	StreamID           int64
	Latitude           float64
	Longitude          float64
	ExpectedUpdateRate float64
	RealUpdateRate     float64
	// Uptime in seconds. It is derived when the record is read and never
	// stored.
	Uptime          int64
	Format          MessageFormat
	Class           StationClass
	Name            string
	SigningKeys     [][]byte
	SourcePublicKey []byte

	present StationField
}

// Has reports whether all given fields were present when the message was
// decoded.
func (s *StationInfo) Has(f StationField) bool {
	return s.present&f == f
}

// Clone returns a deep copy of s.
func (s *StationInfo) Clone() *StationInfo {
	c := *s
	c.SigningKeys = make([][]byte, 0, len(s.SigningKeys))
	for _, k := range s.SigningKeys {
		c.SigningKeys = append(c.SigningKeys, append([]byte(nil), k...))
	}
	if s.SourcePublicKey != nil {
		c.SourcePublicKey = append([]byte(nil), s.SourcePublicKey...)
	}
	return &c
}

func (s *StationInfo) marshal(e *encoder) {
	e.int64(1, s.CasterID)
	e.int64(2, s.StreamID)
	e.double(3, s.Latitude)
	e.double(4, s.Longitude)
	e.double(5, s.ExpectedUpdateRate)
	e.double(6, s.RealUpdateRate)
	e.int64(7, s.Uptime)
	e.int64(8, int64(s.Format))
	e.int64(9, int64(s.Class))
	e.string(10, s.Name)
	for _, k := range s.SigningKeys {
		e.bytes(11, k)
	}
	if len(s.SourcePublicKey) > 0 {
		e.bytes(12, s.SourcePublicKey)
	}
}

// Marshal encodes the station info.
func (s *StationInfo) Marshal() []byte {
	return encode(s)
}

// Unmarshal decodes b into s, replacing its content.
func (s *StationInfo) Unmarshal(b []byte) error {
	*s = StationInfo{}
	return decode(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			s.CasterID, err = f.int64()
			s.present |= FieldCasterID
		case 2:
			s.StreamID, err = f.int64()
			s.present |= FieldStreamID
		case 3:
			s.Latitude, err = f.double()
			s.present |= FieldLatitude
		case 4:
			s.Longitude, err = f.double()
			s.present |= FieldLongitude
		case 5:
			s.ExpectedUpdateRate, err = f.double()
			s.present |= FieldExpectedUpdateRate
		case 6:
			s.RealUpdateRate, err = f.double()
			s.present |= FieldRealUpdateRate
		case 7:
			s.Uptime, err = f.int64()
			s.present |= FieldUptime
		case 8:
			var v int64
			v, err = f.int64()
			s.Format = MessageFormat(v)
			s.present |= FieldFormat
		case 9:
			var v int64
			v, err = f.int64()
			s.Class = StationClass(v)
			s.present |= FieldClass
		case 10:
			s.Name, err = f.string()
			s.present |= FieldName
		case 11:
			var k []byte
			k, err = f.bytes()
			s.SigningKeys = append(s.SigningKeys, k)
		case 12:
			s.SourcePublicKey, err = f.bytes()
		}
		return err
	})
}
