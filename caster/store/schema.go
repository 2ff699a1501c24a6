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

package store

const (
	// SchemaVersion is the version of the SQLite schema understood by this
	// implementation.
	SchemaVersion = 1
	// Schema is the SQLite database layout. start_time is in fractional unix
	// seconds.
	Schema = `CREATE TABLE basestations(
		id INTEGER PRIMARY KEY,
		caster_id INTEGER NOT NULL,
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		expected_update_rate REAL NOT NULL,
		real_update_rate REAL NOT NULL,
		start_time REAL NOT NULL,
		message_format INTEGER NOT NULL,
		station_class INTEGER NOT NULL,
		informal_name TEXT NOT NULL,
		source_public_key BLOB
	);
	CREATE TABLE basestation_signing_keys(
		basestation_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		public_key BLOB NOT NULL,
		PRIMARY KEY (basestation_id, position),
		FOREIGN KEY (basestation_id) REFERENCES basestations(id) ON DELETE CASCADE
	);
	CREATE INDEX idx_basestations_position ON basestations(latitude, longitude);`

	// Table is the name of the basestation table queries select from.
	Table = "basestations"
)
