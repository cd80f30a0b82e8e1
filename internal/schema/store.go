package schema

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/logger"
)

// ErrBadSignature marks a stored schema document whose signature does not
// verify. Such documents are never reconstructed into validators.
var ErrBadSignature = errors.New("schema document signature mismatch")

// storedDocument is the persisted, signed form of a schema.
type storedDocument struct {
	Name   string      `json:"name"`
	Fields []FieldSpec `json:"fields"`
}

// Store persists user-defined schemas in SQLite. Every document is signed
// with HMAC-SHA256 on write and verified on read: stored schema blobs cross
// a trust boundary before they parameterize prompts and records.
type Store struct {
	db  *sql.DB
	key []byte
	log logger.Logger
}

func NewStore(dbPath string, signingKey []byte, log logger.Logger) (*Store, error) {
	if len(signingKey) == 0 {
		return nil, errors.New("schema store requires a signing key")
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening schema database: %w", err)
	}

	store := &Store{db: db, key: signingKey, log: log}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema tables: %w", err)
	}
	return store, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS schemas (
		name TEXT PRIMARY KEY,
		document TEXT NOT NULL,
		signature TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`)
	return err
}

// Save signs and stores the schema, replacing any previous version.
func (s *Store) Save(ctx context.Context, sc *Schema) error {
	doc, err := json.Marshal(storedDocument{Name: sc.name, Fields: sc.fields})
	if err != nil {
		return fmt.Errorf("encoding schema %q: %w", sc.name, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO schemas (name, document, signature) VALUES (?, ?, ?)
	`, sc.name, string(doc), s.sign(doc))
	if err != nil {
		return fmt.Errorf("storing schema %q: %w", sc.name, err)
	}
	s.log.Info("schema %q saved", sc.name)
	return nil
}

// Load verifies the stored document's signature and reconstructs the schema.
// Reconstruction re-runs name validation, so a tampered-but-resigned document
// still cannot smuggle malformed field names in.
func (s *Store) Load(ctx context.Context, name string) (*Schema, error) {
	var doc, signature string
	err := s.db.QueryRowContext(ctx, `
		SELECT document, signature FROM schemas WHERE name = ?
	`, name).Scan(&doc, &signature)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("schema %q not found", name)
	}
	if err != nil {
		return nil, fmt.Errorf("loading schema %q: %w", name, err)
	}

	if !hmac.Equal([]byte(signature), []byte(s.sign([]byte(doc)))) {
		s.log.Error("schema %q failed signature verification", name)
		return nil, fmt.Errorf("schema %q: %w", name, ErrBadSignature)
	}

	var stored storedDocument
	if err := json.Unmarshal([]byte(doc), &stored); err != nil {
		return nil, fmt.Errorf("decoding schema %q: %w", name, err)
	}
	return New(stored.Name, stored.Fields)
}

// List returns the names of all stored schemas.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM schemas ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing schemas: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) sign(doc []byte) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(doc)
	return hex.EncodeToString(mac.Sum(nil))
}
