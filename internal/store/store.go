// Package store persists evaluations in a single-table SQLite database
// keyed by listing content hash.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"dealscout/internal/listing"
	"dealscout/logger"
	pkgerr "dealscout/pkg/errors"
)

// timestampLayout is fixed-width so lexicographic ordering in SQLite equals
// chronological ordering.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

const createTableSQL = `CREATE TABLE IF NOT EXISTS evaluations (
	id TEXT PRIMARY KEY,
	data TEXT NOT NULL,
	timestamp TEXT
);`

// Record is one stored evaluation row.
type Record struct {
	ID         string             `json:"id"`
	Timestamp  string             `json:"timestamp"`
	Evaluation listing.Evaluation `json:"evaluation"`
}

// Store is the evaluation store. It is owned by a single caller; no
// internal locking.
type Store struct {
	db  *sql.DB
	log *logger.Logger
}

// Open opens (creating if needed) the SQLite database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, pkgerr.NewStore("store", "open database", err)
	}

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, pkgerr.NewStore("store", "create table", err)
	}

	return &Store{db: db, log: logger.ForStore()}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Exists reports whether an evaluation for the listing's content hash is
// already stored.
func (s *Store) Exists(l listing.Listing) (bool, error) {
	var id string
	err := s.db.QueryRow("SELECT id FROM evaluations WHERE id = ?", l.Hash()).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, pkgerr.NewStore("store", "existence check", err)
	}
	return true, nil
}

// Put upserts the evaluation under its listing's content hash and returns
// the hash. The insert replaces on conflict, so calling twice with the same
// content leaves one row with the later timestamp.
func (s *Store) Put(ev listing.Evaluation) (string, error) {
	id := ev.Listing.Hash()

	data, err := json.Marshal(ev)
	if err != nil {
		return "", pkgerr.NewStore("store", "serialize evaluation", err)
	}

	timestamp := time.Now().UTC().Format(timestampLayout)
	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO evaluations(id, data, timestamp) VALUES(?, ?, ?)",
		id, string(data), timestamp,
	)
	if err != nil {
		return "", pkgerr.NewStore("store", "insert evaluation", err)
	}

	s.log.Debug().Str("id", id).Msg("Stored evaluation")
	return id, nil
}

// Get retrieves one evaluation by its content hash. Returns nil when the
// hash is unknown.
func (s *Store) Get(id string) (*Record, error) {
	row := s.db.QueryRow("SELECT id, data, timestamp FROM evaluations WHERE id = ?", id)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerr.NewStore("store", "get evaluation", err)
	}
	return rec, nil
}

// GetAll retrieves every stored evaluation, newest first.
func (s *Store) GetAll() ([]Record, error) {
	return s.query("SELECT id, data, timestamp FROM evaluations ORDER BY timestamp DESC")
}

// GetByScoreRange retrieves evaluations whose stored percentile_score lies
// within the given bounds, newest first. Nil bounds are open; both nil is
// equivalent to GetAll.
func (s *Store) GetByScoreRange(minScore, maxScore *float64) ([]Record, error) {
	switch {
	case minScore != nil && maxScore != nil:
		return s.query(
			"SELECT id, data, timestamp FROM evaluations WHERE json_extract(data, '$.percentile_score') BETWEEN ? AND ? ORDER BY timestamp DESC",
			*minScore, *maxScore,
		)
	case minScore != nil:
		return s.query(
			"SELECT id, data, timestamp FROM evaluations WHERE json_extract(data, '$.percentile_score') >= ? ORDER BY timestamp DESC",
			*minScore,
		)
	case maxScore != nil:
		return s.query(
			"SELECT id, data, timestamp FROM evaluations WHERE json_extract(data, '$.percentile_score') <= ? ORDER BY timestamp DESC",
			*maxScore,
		)
	default:
		return s.GetAll()
	}
}

// Clear removes every stored evaluation and returns the number of rows
// removed.
func (s *Store) Clear() (int64, error) {
	res, err := s.db.Exec("DELETE FROM evaluations")
	if err != nil {
		return 0, pkgerr.NewStore("store", "clear", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, pkgerr.NewStore("store", "clear rowcount", err)
	}
	return count, nil
}

func (s *Store) query(q string, args ...any) ([]Record, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, pkgerr.NewStore("store", "query", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, pkgerr.NewStore("store", "scan row", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerr.NewStore("store", "iterate rows", err)
	}
	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var rec Record
	var data string
	if err := row.Scan(&rec.ID, &data, &rec.Timestamp); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(data), &rec.Evaluation); err != nil {
		return nil, fmt.Errorf("corrupt evaluation %s: %w", rec.ID, err)
	}
	return &rec, nil
}
