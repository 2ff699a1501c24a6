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

// MessageFormat tags the format of the opaque correction payload.
type MessageFormat int32

const (
	FormatRTCMv2 MessageFormat = iota + 1
	FormatRTCMv3
	FormatCMR
	FormatCMRPlus
	FormatSBAS
	FormatRTCA
)

var formatNames = map[MessageFormat]string{
	FormatRTCMv2:  "RTCM_V2",
	FormatRTCMv3:  "RTCM_V3",
	FormatCMR:     "CMR",
	FormatCMRPlus: "CMR_PLUS",
	FormatSBAS:    "SBAS",
	FormatRTCA:    "RTCA",
}

func (f MessageFormat) Valid() bool {
	_, ok := formatNames[f]
	return ok
}

func (f MessageFormat) String() string {
	if n, ok := formatNames[f]; ok {
		return n
	}
	return fmt.Sprintf("FORMAT(%d)", int32(f))
}

// ParseMessageFormat parses the name produced by MessageFormat.String.
func ParseMessageFormat(s string) (MessageFormat, error) {
	for f, n := range formatNames {
		if n == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown message format %q", s)
}

// StationClass is the trust class of a basestation.
type StationClass int32

const (
	ClassOfficial StationClass = iota
	ClassRegisteredCommunity
	ClassCommunity
)

func (c StationClass) Valid() bool {
	return c >= ClassOfficial && c <= ClassCommunity
}

func (c StationClass) String() string {
	switch c {
	case ClassOfficial:
		return "OFFICIAL"
	case ClassRegisteredCommunity:
		return "REGISTERED_COMMUNITY"
	case ClassCommunity:
		return "COMMUNITY"
	default:
		return fmt.Sprintf("CLASS(%d)", int32(c))
	}
}

// ParseStationClass parses the name produced by StationClass.String.
func ParseStationClass(s string) (StationClass, error) {
	for c := ClassOfficial; c <= ClassCommunity; c++ {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown station class %q", s)
}

// Relation is the operator of a numeric query condition.
type Relation int32

const (
	LessThan Relation = iota
	LessOrEqual
	Equal
	NotEqual
	GreaterThan
	GreaterOrEqual
)

func (r Relation) Valid() bool {
	return r >= LessThan && r <= GreaterOrEqual
}

// NameRelation is the operator of the informal name condition.
type NameRelation int32

const (
	NameEqual NameRelation = iota
	NameLike
)

// FailureReason is the structured failure returned by request/reply channels.
type FailureReason int32

const (
	FailureNone FailureReason = iota
	FailureMalformed
	FailureUnauthorized
	FailureCredentialsExpired
	FailureBlacklisted
	FailureTooComplex
	FailureOversized
	FailureInternal
	FailureUnreachable
)

func (r FailureReason) String() string {
	switch r {
	case FailureNone:
		return "NONE"
	case FailureMalformed:
		return "MALFORMED"
	case FailureUnauthorized:
		return "UNAUTHORIZED"
	case FailureCredentialsExpired:
		return "CREDENTIALS_EXPIRED"
	case FailureBlacklisted:
		return "BLACKLISTED"
	case FailureTooComplex:
		return "TOO_COMPLEX"
	case FailureOversized:
		return "OVERSIZED"
	case FailureInternal:
		return "INTERNAL"
	case FailureUnreachable:
		return "UNREACHABLE"
	default:
		return fmt.Sprintf("FAILURE(%d)", int32(r))
	}
}

// RemovalReason explains why a basestation was removed.
type RemovalReason int32

const (
	RemovedTimedOut RemovalReason = iota + 1
	RemovedDeregistered
	RemovedKeyRevoked
	RemovedRemote
)

func (r RemovalReason) String() string {
	switch r {
	case RemovedTimedOut:
		return "TIMED_OUT"
	case RemovedDeregistered:
		return "DEREGISTERED"
	case RemovedKeyRevoked:
		return "KEY_REVOKED"
	case RemovedRemote:
		return "REMOTE_REMOVED"
	default:
		return fmt.Sprintf("REMOVED(%d)", int32(r))
	}
}
