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

package config

const generalSample = `
# The globally unique ID of this caster. (required)
id = 1

# Hex encoded ed25519 public key that signs key management batches. If
# unset, every key management request is refused. (default "")
management_key = ""
`

const endpointsSample = `
# Transmitter registration and payload frames. (default "tcp://*:6600")
registration = "tcp://*:6600"

# Client discovery queries. (default "tcp://*:6601")
query = "tcp://*:6601"

# Payload frames for clients. (default "tcp://*:6602")
client_publish = "tcp://*:6602"

# Payload frames for federated casters. (default "tcp://*:6603")
proxy_publish = "tcp://*:6603"

# Station notifications. (default "tcp://*:6604")
notifications = "tcp://*:6604"

# Signed key management batches. (default "tcp://*:6605")
key_management = "tcp://*:6605"

# Raw proxy add and remove requests. Linking a caster through this channel
# skips the roster discovery; the management API does both. (default "")
proxy_control = ""
`

const timeoutsSample = `
# Silence after which a transmitter is removed. (default 5s)
connection = "5s"

# Silence after which a mirrored stream is removed. (default 5s)
proxy_stream = "5s"

# Upper bound of calls to remote casters. (default 5s)
rpc = "5s"

# Time granted to new subscriptions before the remote roster is fetched.
# (default 100ms)
settle = "100ms"

# Maximum clock difference accepted for key management batches. (default 5m)
key_skew = "5m"
`

const statisticsSample = `
# Interval between real update rate computations. (default 1s)
tick = "1s"

# Number of ticks the real update rate is averaged over. (default 10)
window = 10
`

const dbSample = `
# Path of the station database. (default "/var/lib/caster/caster.db")
connection = "/var/lib/caster/caster.db"

# Keep the station database in memory. (default false)
in_memory = false
`

const apiSample = `
# Address of the management API, e.g. "127.0.0.1:8080". The API is
# disabled if empty. (default "")
addr = ""
`
