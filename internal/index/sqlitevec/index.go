// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlotWeave Contributors

// Package sqlitevec implements index.Index on an embedded SQLite database
// with the sqlite-vec extension. Every write is durable immediately; the
// database file is wholly owned by one Index instance.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/plotweave-dev/plotweave/internal/index"
	pwerr "github.com/plotweave-dev/plotweave/pkg/errors"
)

func init() {
	sqlite_vec.Auto()
}

// Compile-time interface check.
var _ index.Index = (*Index)(nil)

// payload fields eligible for DeleteByField. json_extract paths cannot be
// bound as parameters, so the field name is allow-listed instead.
var fieldPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Index implements index.Index backed by a vec0 virtual table (cosine
// distance) plus a companion JSON payload table.
type Index struct {
	db         *sql.DB
	dimensions int
}

// New opens (or creates) the SQLite database at dbPath and initialises the
// vec0 virtual table with the given fixed dimensionality. Reopening an
// existing database with different dimensions fails at the first upsert.
func New(dbPath string, dimensions int) (*Index, error) {
	if dimensions <= 0 {
		return nil, pwerr.Errorf(pwerr.CodeEmbeddingDimensions, "vector dimensions must be positive, got %d", dimensions)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, pwerr.Errorf(pwerr.CodeIndexFailure, "opening sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, pwerr.Errorf(pwerr.CodeIndexFailure, "pinging sqlite db: %w", err)
	}

	if err := migrate(db, dimensions); err != nil {
		_ = db.Close()
		return nil, pwerr.Errorf(pwerr.CodeIndexFailure, "migrating index tables: %w", err)
	}

	return &Index{db: db, dimensions: dimensions}, nil
}

func migrate(db *sql.DB, dimensions int) error {
	vecDDL := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS points USING vec0(id TEXT PRIMARY KEY, embedding float[%d] distance_metric=cosine)`,
		dimensions,
	)
	if _, err := db.Exec(vecDDL); err != nil {
		return fmt.Errorf("creating points virtual table: %w", err)
	}

	const payloadDDL = `
CREATE TABLE IF NOT EXISTS point_payloads (
	id      TEXT PRIMARY KEY,
	payload TEXT NOT NULL DEFAULT '{}'
)`
	if _, err := db.Exec(payloadDDL); err != nil {
		return fmt.Errorf("creating point_payloads table: %w", err)
	}

	return nil
}

// Upsert inserts or replaces a point and its payload.
func (ix *Index) Upsert(ctx context.Context, p index.Point) error {
	if len(p.Vector) != ix.dimensions {
		return pwerr.Errorf(pwerr.CodeEmbeddingDimensions,
			"vector for %s has %d dimensions, index requires %d", p.ID, len(p.Vector), ix.dimensions)
	}

	blob, err := sqlite_vec.SerializeFloat32(p.Vector)
	if err != nil {
		return pwerr.Errorf(pwerr.CodeIndexFailure, "serializing vector: %w", err)
	}

	payloadJSON := []byte("{}")
	if len(p.Payload) > 0 {
		payloadJSON, err = json.Marshal(p.Payload)
		if err != nil {
			return pwerr.Errorf(pwerr.CodeIndexFailure, "marshalling payload: %w", err)
		}
	}

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return pwerr.Errorf(pwerr.CodeIndexFailure, "beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// vec0 does not support ON CONFLICT; delete first for upsert.
	if _, err := tx.ExecContext(ctx, `DELETE FROM points WHERE id = ?`, p.ID); err != nil {
		return pwerr.Errorf(pwerr.CodeIndexFailure, "deleting existing point %s: %w", p.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO points(id, embedding) VALUES (?, ?)`, p.ID, blob); err != nil {
		return pwerr.Errorf(pwerr.CodeIndexFailure, "inserting point %s: %w", p.ID, err)
	}

	const payloadQ = `INSERT INTO point_payloads(id, payload) VALUES (?, ?)
ON CONFLICT(id) DO UPDATE SET payload = excluded.payload`
	if _, err := tx.ExecContext(ctx, payloadQ, p.ID, string(payloadJSON)); err != nil {
		return pwerr.Errorf(pwerr.CodeIndexFailure, "upserting payload %s: %w", p.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return pwerr.Errorf(pwerr.CodeIndexFailure, "committing upsert: %w", err)
	}
	return nil
}

// Search performs a k-nearest-neighbor query. Results carry similarity
// scores (1 - cosine distance) in non-increasing order.
func (ix *Index) Search(ctx context.Context, vector []float32, limit int) ([]index.Hit, error) {
	if limit <= 0 {
		return nil, pwerr.Errorf(pwerr.CodeIndexInvalidInput, "search limit must be positive, got %d", limit)
	}
	if len(vector) != ix.dimensions {
		return nil, pwerr.Errorf(pwerr.CodeEmbeddingDimensions,
			"query vector has %d dimensions, index requires %d", len(vector), ix.dimensions)
	}

	blob, err := sqlite_vec.SerializeFloat32(vector)
	if err != nil {
		return nil, pwerr.Errorf(pwerr.CodeIndexFailure, "serializing query vector: %w", err)
	}

	const q = `SELECT p.id, p.distance, COALESCE(pl.payload, '{}')
FROM points p
LEFT JOIN point_payloads pl ON pl.id = p.id
WHERE p.embedding MATCH ? AND k = ?
ORDER BY p.distance`

	rows, err := ix.db.QueryContext(ctx, q, blob, limit)
	if err != nil {
		return nil, pwerr.Errorf(pwerr.CodeIndexFailure, "searching points: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var hits []index.Hit
	for rows.Next() {
		var (
			h          index.Hit
			distance   float64
			payloadStr string
		)
		if err := rows.Scan(&h.ID, &distance, &payloadStr); err != nil {
			return nil, pwerr.Errorf(pwerr.CodeIndexFailure, "scanning search result: %w", err)
		}
		h.Score = 1 - distance

		if payloadStr != "" && payloadStr != "{}" {
			if err := json.Unmarshal([]byte(payloadStr), &h.Payload); err != nil {
				return nil, pwerr.Errorf(pwerr.CodeIndexFailure, "unmarshalling payload: %w", err)
			}
		}

		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, pwerr.Errorf(pwerr.CodeIndexFailure, "iterating search results: %w", err)
	}

	return hits, nil
}

// DeleteByIDs removes points and their payloads by id.
func (ix *Index) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return pwerr.Errorf(pwerr.CodeIndexFailure, "beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := deleteIDsTx(ctx, tx, ids); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return pwerr.Errorf(pwerr.CodeIndexFailure, "committing delete: %w", err)
	}
	return nil
}

// DeleteByField removes every point whose payload field equals value.
func (ix *Index) DeleteByField(ctx context.Context, field, value string) error {
	if !fieldPattern.MatchString(field) {
		return pwerr.Errorf(pwerr.CodeIndexInvalidInput, "invalid payload field name %q", field)
	}

	// json_extract paths are not bindable, so the validated field name is
	// interpolated and only the value is bound.
	q := fmt.Sprintf(`SELECT id FROM point_payloads WHERE json_extract(payload, '$.%s') = ?`, field)
	rows, err := ix.db.QueryContext(ctx, q, value)
	if err != nil {
		return pwerr.Errorf(pwerr.CodeIndexFailure, "selecting points by %s: %w", field, err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return pwerr.Errorf(pwerr.CodeIndexFailure, "scanning point id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return pwerr.Errorf(pwerr.CodeIndexFailure, "iterating point ids: %w", err)
	}

	return ix.DeleteByIDs(ctx, ids)
}

// Count returns the number of stored points.
func (ix *Index) Count(ctx context.Context) (int, error) {
	var n int
	if err := ix.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM point_payloads`).Scan(&n); err != nil {
		return 0, pwerr.Errorf(pwerr.CodeIndexFailure, "counting points: %w", err)
	}
	return n, nil
}

// Close closes the underlying database connection.
func (ix *Index) Close() error {
	return ix.db.Close()
}

func deleteIDsTx(ctx context.Context, tx *sql.Tx, ids []string) error {
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM points WHERE id IN (`+placeholders+`)`, args...); err != nil {
		return pwerr.Errorf(pwerr.CodeIndexFailure, "deleting points: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM point_payloads WHERE id IN (`+placeholders+`)`, args...); err != nil {
		return pwerr.Errorf(pwerr.CodeIndexFailure, "deleting payloads: %w", err)
	}

	return nil
}
