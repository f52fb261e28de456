package atomspace

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

// Repository defines persistence for atoms.
// This abstraction allows for different implementations (SQLite, mock, etc.).
type Repository interface {
	// Save inserts a new atom.
	// Returns ErrAtomExists if an atom with the same handle is already stored.
	Save(ctx context.Context, atom *Atom) error

	// LoadAll returns every stored atom ordered by handle.
	LoadAll(ctx context.Context) ([]Atom, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection with the atoms table migrated.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Save inserts a new atom.
func (r *SQLiteRepository) Save(ctx context.Context, atom *Atom) error {
	outgoingJSON, err := json.Marshal(atom.Outgoing)
	if err != nil {
		return fmt.Errorf("marshalling outgoing: %w", err)
	}

	query := `
		INSERT INTO atoms (handle, type, name, outgoing, strength, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		int64(atom.Handle), //nolint:gosec // handles stay far below MaxInt64
		atom.Type,
		atom.Name,
		string(outgoingJSON),
		atom.TruthValue.Strength,
		atom.TruthValue.Confidence,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isConstraintError(err) {
			return ErrAtomExists
		}
		return fmt.Errorf("inserting atom: %w", err)
	}
	return nil
}

// LoadAll returns every stored atom ordered by handle.
func (r *SQLiteRepository) LoadAll(ctx context.Context) ([]Atom, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT handle, type, name, outgoing, strength, confidence
		FROM atoms
		ORDER BY handle`)
	if err != nil {
		return nil, fmt.Errorf("querying atoms: %w", err)
	}
	defer rows.Close()

	var atoms []Atom
	for rows.Next() {
		var (
			a            Atom
			handle       int64
			outgoingJSON string
		)
		if err := rows.Scan(&handle, &a.Type, &a.Name, &outgoingJSON, &a.TruthValue.Strength, &a.TruthValue.Confidence); err != nil {
			return nil, fmt.Errorf("scanning atom row: %w", err)
		}
		a.Handle = Handle(handle) //nolint:gosec // stored from a Handle
		if outgoingJSON != "" && outgoingJSON != "null" {
			if err := json.Unmarshal([]byte(outgoingJSON), &a.Outgoing); err != nil {
				return nil, fmt.Errorf("unmarshalling outgoing for atom %d: %w", handle, err)
			}
		}
		atoms = append(atoms, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating atoms: %w", err)
	}
	return atoms, nil
}

// isConstraintError reports whether err is a SQLite primary key or unique violation.
func isConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
