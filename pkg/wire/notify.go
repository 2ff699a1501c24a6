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

// NotificationKind tags the variant of a Notification.
type NotificationKind int

const (
	// NotificationNewStation announces a newly registered basestation.
	NotificationNewStation NotificationKind = iota + 1
	// NotificationRemoved announces the removal of a basestation.
	NotificationRemoved
)

// Notification is a status notification. Exactly one variant is set,
// according to Kind: Station for NotificationNewStation, Reason for
// NotificationRemoved.
type Notification struct {
	Kind    NotificationKind
	Station *StationInfo
	Reason  RemovalReason
}

// NewStationNotification returns a notification announcing s.
func NewStationNotification(s *StationInfo) *Notification {
	return &Notification{Kind: NotificationNewStation, Station: s}
}

// RemovedNotification returns a removal notification.
func RemovedNotification(reason RemovalReason) *Notification {
	return &Notification{Kind: NotificationRemoved, Reason: reason}
}

type removal struct {
	reason RemovalReason
}

func (r *removal) marshal(e *encoder) {
	e.int64(1, int64(r.reason))
}

func (r *removal) Unmarshal(b []byte) error {
	return decode(b, func(f field) error {
		if f.num != 1 {
			return nil
		}
		v, err := f.int64()
		r.reason = RemovalReason(v)
		return err
	})
}

func (n *Notification) marshal(e *encoder) {
	switch n.Kind {
	case NotificationNewStation:
		e.message(1, n.Station)
	case NotificationRemoved:
		e.message(2, &removal{reason: n.Reason})
	}
}

// Marshal encodes the notification.
func (n *Notification) Marshal() []byte {
	return encode(n)
}

// Unmarshal decodes b into n. A message that sets no variant is malformed.
func (n *Notification) Unmarshal(b []byte) error {
	*n = Notification{}
	err := decode(b, func(f field) error {
		switch f.num {
		case 1:
			n.Kind = NotificationNewStation
			n.Station = &StationInfo{}
			return f.message(n.Station)
		case 2:
			n.Kind = NotificationRemoved
			var r removal
			if err := f.message(&r); err != nil {
				return err
			}
			n.Reason = r.reason
		}
		return nil
	})
	if err != nil {
		return err
	}
	if n.Kind == 0 {
		return malformed("notification without variant")
	}
	return nil
}
