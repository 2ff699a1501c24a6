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

// Package store persists basestation records in SQLite.
//
// A Backend holds the only connection to the database. It is used exclusively
// by the client request worker; other workers reach it through the store
// control channel.
package store

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/rtkcaster/caster/pkg/private/serrors"
	"github.com/rtkcaster/caster/pkg/wire"
	"github.com/rtkcaster/caster/private/storage/db"
)

// ErrNotFound is returned when no record has the requested ID.
var ErrNotFound = errors.New("record not found")

// Backend is the SQLite basestation store.
type Backend struct {
	db *db.Sqlite
}

// New opens the database at path and sets up the schema if necessary.
func New(path string, cfg *db.SqliteConfig) (*Backend, error) {
	s, err := db.NewSqlite(path, cfg)
	if err != nil {
		return nil, err
	}
	if err := s.Setup(Schema, SchemaVersion); err != nil {
		s.Close()
		return nil, err
	}
	return &Backend{db: s}, nil
}

// Close closes the database connection.
func (b *Backend) Close() error {
	return b.db.Close()
}

func toUnix(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// Uptime returns the uptime in whole seconds of a station started at start.
func Uptime(start float64, now time.Time) int64 {
	return int64(math.Floor(toUnix(now) - start))
}

// Store inserts rec under its stream ID. The start time is the reference for
// the derived uptime. Uptime and the presence information of rec are ignored.
func (b *Backend) Store(ctx context.Context, rec *wire.StationInfo, start time.Time) error {
	return b.inTx(ctx, func(tx *sql.Tx) error {
		return insert(ctx, tx, rec, start)
	})
}

// Replace overwrites the record with the stream ID of rec, or inserts it.
func (b *Backend) Replace(ctx context.Context, rec *wire.StationInfo, start time.Time) error {
	return b.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM basestations WHERE id = ?`,
			rec.StreamID); err != nil {
			return db.NewWriteError("deleting previous record", err, "id", rec.StreamID)
		}
		return insert(ctx, tx, rec, start)
	})
}

func insert(ctx context.Context, tx *sql.Tx, rec *wire.StationInfo, start time.Time) error {
	const ins = `INSERT INTO basestations (id, caster_id, latitude, longitude,
		expected_update_rate, real_update_rate, start_time, message_format, station_class,
		informal_name, source_public_key) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var pub any
	if len(rec.SourcePublicKey) > 0 {
		pub = rec.SourcePublicKey
	}
	_, err := tx.ExecContext(ctx, ins, rec.StreamID, rec.CasterID, rec.Latitude,
		rec.Longitude, rec.ExpectedUpdateRate, rec.RealUpdateRate, toUnix(start),
		int64(rec.Format), int64(rec.Class), rec.Name, pub)
	if err != nil {
		return db.NewWriteError("inserting basestation", err, "id", rec.StreamID)
	}
	const insKey = `INSERT INTO basestation_signing_keys (basestation_id, position, public_key)
		VALUES (?, ?, ?)`
	for i, k := range rec.SigningKeys {
		if _, err := tx.ExecContext(ctx, insKey, rec.StreamID, i, k); err != nil {
			return db.NewWriteError("inserting signing key", err, "id", rec.StreamID)
		}
	}
	return nil
}

// Retrieve returns the record with the given ID. Its uptime is derived from
// now.
func (b *Backend) Retrieve(ctx context.Context, id int64, now time.Time) (*wire.StationInfo, error) {
	const sel = `SELECT caster_id, latitude, longitude, expected_update_rate,
		real_update_rate, start_time, message_format, station_class, informal_name,
		source_public_key FROM basestations WHERE id = ?`
	rec := &wire.StationInfo{StreamID: id}
	var start float64
	var format, class int64
	var pub []byte
	err := b.db.DB.QueryRowContext(ctx, sel, id).Scan(&rec.CasterID, &rec.Latitude,
		&rec.Longitude, &rec.ExpectedUpdateRate, &rec.RealUpdateRate, &start, &format,
		&class, &rec.Name, &pub)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, serrors.JoinNoStack(ErrNotFound, nil, "id", id)
	}
	if err != nil {
		return nil, db.NewReadError("reading basestation", err, "id", id)
	}
	rec.Format = wire.MessageFormat(format)
	rec.Class = wire.StationClass(class)
	rec.Uptime = Uptime(start, now)
	if len(pub) > 0 {
		rec.SourcePublicKey = pub
	}

	rows, err := b.db.DB.QueryContext(ctx, `SELECT public_key FROM basestation_signing_keys
		WHERE basestation_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, db.NewReadError("reading signing keys", err, "id", id)
	}
	defer rows.Close()
	for rows.Next() {
		var k []byte
		if err := rows.Scan(&k); err != nil {
			return nil, db.NewReadError("reading signing key", err, "id", id)
		}
		rec.SigningKeys = append(rec.SigningKeys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, db.NewReadError("iterating signing keys", err, "id", id)
	}
	return rec, nil
}

// DeleteByID removes the record and its signing keys. It returns the number of
// deleted records.
func (b *Backend) DeleteByID(ctx context.Context, id int64) (int, error) {
	res, err := b.db.DB.ExecContext(ctx, `DELETE FROM basestations WHERE id = ?`, id)
	if err != nil {
		return 0, db.NewWriteError("deleting basestation", err, "id", id)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Purge removes all records. Stream IDs are not persisted across restarts, so
// records of a previous run are stale.
func (b *Backend) Purge(ctx context.Context) (int, error) {
	res, err := b.db.DB.ExecContext(ctx, `DELETE FROM basestations`)
	if err != nil {
		return 0, db.NewWriteError("purging basestations", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

var updatable = map[wire.StationField]string{
	wire.FieldLatitude:           "latitude",
	wire.FieldLongitude:          "longitude",
	wire.FieldExpectedUpdateRate: "expected_update_rate",
	wire.FieldRealUpdateRate:     "real_update_rate",
	wire.FieldFormat:             "message_format",
	wire.FieldClass:              "station_class",
	wire.FieldName:               "informal_name",
}

// Update sets a single field of the record. Only scalar metadata fields can be
// updated; identity fields and the derived uptime cannot.
func (b *Backend) Update(ctx context.Context, id int64, field wire.StationField,
	value any) error {

	col, ok := updatable[field]
	if !ok {
		return db.NewInputDataError("field not updatable", nil, "field", field)
	}
	res, err := b.db.DB.ExecContext(ctx, "UPDATE basestations SET "+col+" = ? WHERE id = ?",
		value, id)
	if err != nil {
		return db.NewWriteError("updating basestation", err, "id", id, "column", col)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return serrors.JoinNoStack(ErrNotFound, nil, "id", id)
	}
	return nil
}

// IDs executes a compiled selection statement that yields record IDs.
func (b *Backend) IDs(ctx context.Context, stmt string, args ...any) ([]int64, error) {
	rows, err := b.db.DB.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, db.NewReadError("selecting basestations", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, db.NewReadError("reading id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, db.NewReadError("iterating ids", err)
	}
	return ids, nil
}

// Hydrate retrieves the records for ids. IDs that vanished in the meantime are
// skipped.
func (b *Backend) Hydrate(ctx context.Context, ids []int64,
	now time.Time) ([]*wire.StationInfo, error) {

	recs := make([]*wire.StationInfo, 0, len(ids))
	for _, id := range ids {
		rec, err := b.Retrieve(ctx, id, now)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (b *Backend) inTx(ctx context.Context, f func(tx *sql.Tx) error) error {
	tx, err := b.db.DB.BeginTx(ctx, nil)
	if err != nil {
		return db.NewTxError("create tx", err)
	}
	if err := f(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return db.NewTxError("commit tx", err)
	}
	return nil
}
