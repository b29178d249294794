// Package store persists issued authenticity certificates in SQLite.
//
// The store is an audit trail, not a cache: rows are append-only and the
// full signed certificate JSON rides along in the payload column so a
// verdict can be re-validated long after the issuing process exited. The
// indexed columns exist for querying; the payload is the source of truth.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"toolwitness/internal/certificate"
)

// Schema for the certificate audit store.
const schema = `
CREATE TABLE IF NOT EXISTS certificates (
    id                  INTEGER PRIMARY KEY AUTOINCREMENT,
    tool_name           TEXT NOT NULL,
    verified_at_ns      INTEGER NOT NULL,
    confidence_score    REAL NOT NULL,
    authenticity_level  TEXT NOT NULL,
    subprocess_spawned  INTEGER NOT NULL,
    filesystem_changes  INTEGER NOT NULL,
    execution_time_ns   INTEGER NOT NULL,
    indicators          TEXT NOT NULL,
    payload             BLOB NOT NULL,
    signature           TEXT
);

CREATE INDEX IF NOT EXISTS idx_certificates_tool ON certificates(tool_name, verified_at_ns);
CREATE INDEX IF NOT EXISTS idx_certificates_time ON certificates(verified_at_ns);
CREATE INDEX IF NOT EXISTS idx_certificates_level ON certificates(authenticity_level);
`

// Record is one stored certificate row.
type Record struct {
	ID          int64
	Certificate *certificate.Certificate
}

// Counts summarizes the stored verdicts per authenticity level.
type Counts struct {
	Total           int            `json:"total"`
	ByLevel         map[string]int `json:"by_level"`
	FabricationRate float64        `json:"fabrication_rate"`
}

// Store is the SQLite certificate store.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database at the given path and applies
// the schema.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Insert stores a certificate and returns its row ID.
func (s *Store) Insert(cert *certificate.Certificate) (int64, error) {
	if cert == nil {
		return 0, errors.New("store: nil certificate")
	}

	payload, err := cert.Encode()
	if err != nil {
		return 0, fmt.Errorf("encode certificate: %w", err)
	}
	indicators, err := json.Marshal(cert.FabricationIndicators)
	if err != nil {
		return 0, fmt.Errorf("encode indicators: %w", err)
	}

	result, err := s.db.Exec(`
		INSERT INTO certificates (tool_name, verified_at_ns, confidence_score, authenticity_level, subprocess_spawned, filesystem_changes, execution_time_ns, indicators, payload, signature)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cert.ToolName,
		cert.VerifiedAt.UnixNano(),
		cert.ConfidenceScore,
		cert.AuthenticityLevel.String(),
		cert.Evidence.SubprocessSpawned,
		len(cert.Evidence.FilesystemChanges),
		int64(cert.Evidence.ExecutionTime),
		string(indicators),
		payload,
		cert.Signature,
	)
	if err != nil {
		return 0, fmt.Errorf("insert certificate: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id: %w", err)
	}

	return id, nil
}

// Get retrieves a stored certificate by row ID. Returns nil when the row
// does not exist.
func (s *Store) Get(id int64) (*Record, error) {
	var payload []byte
	err := s.db.QueryRow(`
		SELECT payload FROM certificates WHERE id = ?`, id,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get certificate: %w", err)
	}

	cert, err := certificate.Decode(payload)
	if err != nil {
		return nil, fmt.Errorf("decode stored certificate: %w", err)
	}
	return &Record{ID: id, Certificate: cert}, nil
}

// Recent returns up to limit certificates, newest first.
func (s *Store) Recent(limit int) ([]Record, error) {
	rows, err := s.db.Query(`
		SELECT id, payload FROM certificates
		ORDER BY verified_at_ns DESC, id DESC
		LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent certificates: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ListByTool returns all certificates for one tool within a time range,
// oldest first.
func (s *Store) ListByTool(toolName string, since, until time.Time) ([]Record, error) {
	rows, err := s.db.Query(`
		SELECT id, payload FROM certificates
		WHERE tool_name = ? AND verified_at_ns >= ? AND verified_at_ns <= ?
		ORDER BY verified_at_ns ASC, id ASC`,
		toolName, since.UnixNano(), until.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("query certificates by tool: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// LevelCounts returns stored totals broken down by authenticity level.
func (s *Store) LevelCounts() (Counts, error) {
	rows, err := s.db.Query(`
		SELECT authenticity_level, COUNT(*) FROM certificates
		GROUP BY authenticity_level`,
	)
	if err != nil {
		return Counts{}, fmt.Errorf("query level counts: %w", err)
	}
	defer rows.Close()

	c := Counts{ByLevel: make(map[string]int)}
	for rows.Next() {
		var level string
		var n int
		if err := rows.Scan(&level, &n); err != nil {
			return Counts{}, fmt.Errorf("scan level count: %w", err)
		}
		c.ByLevel[level] = n
		c.Total += n
	}
	if err := rows.Err(); err != nil {
		return Counts{}, fmt.Errorf("iterate level counts: %w", err)
	}

	if c.Total > 0 {
		c.FabricationRate = float64(c.ByLevel["fabricated"]) / float64(c.Total)
	}
	return c, nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var id int64
		var payload []byte
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("scan certificate row: %w", err)
		}
		cert, err := certificate.Decode(payload)
		if err != nil {
			return nil, fmt.Errorf("decode stored certificate: %w", err)
		}
		records = append(records, Record{ID: id, Certificate: cert})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate certificate rows: %w", err)
	}

	return records, nil
}
