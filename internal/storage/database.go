// Package storage persists engine state that does not belong in the
// markdown documents themselves: registered sources, the bury list, and the
// review log.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Registers the sqlite driver
)

const (
	buryDateKey = "bury_date"
	buryListKey = "bury_list"
)

// Source kinds.
const (
	SourceLocal = "local"
	SourceGit   = "git"
)

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn *sql.DB
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Execute the schema to create tables if they don't exist.
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Source represents a flashcard document source, either a local path or a
// git URL.
type Source struct {
	ID          int64
	Path        string
	Kind        string
	LastScanned sql.NullTime
}

// InsertSource registers a new source and returns its ID. Re-registering an
// existing path returns the stored row's ID.
func (db *DB) InsertSource(path, kind string) (int64, error) {
	existing, err := db.FindSourceByPath(path)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return existing.ID, nil
	}

	res, err := db.conn.Exec(`
		INSERT INTO sources (path, kind)
		VALUES (?, ?)
	`, path, kind)
	if err != nil {
		return 0, fmt.Errorf("failed to insert source %s: %w", path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for source %s: %w", path, err)
	}
	return id, nil
}

// FindSourceByPath retrieves a source from the database by its path.
func (db *DB) FindSourceByPath(path string) (*Source, error) {
	var s Source
	row := db.conn.QueryRow(`
		SELECT id, path, kind, last_scanned
		FROM sources WHERE path = ?
	`, path)

	err := row.Scan(&s.ID, &s.Path, &s.Kind, &s.LastScanned)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Source not found
		}
		return nil, fmt.Errorf("failed to find source by path %s: %w", path, err)
	}
	return &s, nil
}

// GetAllSources retrieves all stored sources from the database.
func (db *DB) GetAllSources() ([]Source, error) {
	rows, err := db.conn.Query(`
		SELECT id, path, kind, last_scanned
		FROM sources
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.Path, &s.Kind, &s.LastScanned); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// UpdateSourceLastScanned updates the last_scanned timestamp for a source.
func (db *DB) UpdateSourceLastScanned(sourceID int64) error {
	_, err := db.conn.Exec(`
		UPDATE sources
		SET last_scanned = ?
		WHERE id = ?
	`, time.Now(), sourceID)
	if err != nil {
		return fmt.Errorf("failed to update last scanned for source ID %d: %w", sourceID, err)
	}
	return nil
}

// SaveBuryState persists the bury date and the bury list atomically.
func (db *DB) SaveBuryState(buryDate string, hashes []string) error {
	list, err := json.Marshal(hashes)
	if err != nil {
		return fmt.Errorf("failed to encode bury list: %w", err)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin bury state transaction: %w", err)
	}
	defer tx.Rollback()

	upsert := `
		INSERT INTO engine_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`
	if _, err := tx.Exec(upsert, buryDateKey, buryDate); err != nil {
		return fmt.Errorf("failed to save bury date: %w", err)
	}
	if _, err := tx.Exec(upsert, buryListKey, string(list)); err != nil {
		return fmt.Errorf("failed to save bury list: %w", err)
	}
	return tx.Commit()
}

// LoadBuryState restores the bury date and the bury list. Missing state
// (fresh database) comes back as an empty date and nil list.
func (db *DB) LoadBuryState() (string, []string, error) {
	buryDate, err := db.stateValue(buryDateKey)
	if err != nil {
		return "", nil, err
	}
	raw, err := db.stateValue(buryListKey)
	if err != nil {
		return "", nil, err
	}
	if raw == "" {
		return buryDate, nil, nil
	}

	var hashes []string
	if err := json.Unmarshal([]byte(raw), &hashes); err != nil {
		return "", nil, fmt.Errorf("failed to decode bury list: %w", err)
	}
	return buryDate, hashes, nil
}

func (db *DB) stateValue(key string) (string, error) {
	var value string
	err := db.conn.QueryRow(`
		SELECT value FROM engine_state WHERE key = ?
	`, key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("failed to load state %s: %w", key, err)
	}
	return value, nil
}

// LogReview appends one graded answer to the review log.
func (db *DB) LogReview(questionHash, grade string, interval, ease int, reviewedAt time.Time) error {
	_, err := db.conn.Exec(`
		INSERT INTO review_log (question_hash, grade, interval, ease, reviewed_at)
		VALUES (?, ?, ?, ?, ?)
	`, questionHash, grade, interval, ease, reviewedAt)
	if err != nil {
		return fmt.Errorf("failed to log review for %s: %w", questionHash, err)
	}
	return nil
}

// CountReviewsSince returns the number of logged reviews at or after t.
func (db *DB) CountReviewsSince(t time.Time) (int, error) {
	var count int
	err := db.conn.QueryRow(`
		SELECT COUNT(*) FROM review_log WHERE reviewed_at >= ?
	`, t).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count reviews: %w", err)
	}
	return count, nil
}
