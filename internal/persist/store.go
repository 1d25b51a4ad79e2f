package persist

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kayz/promptblocks/internal/block"
	"github.com/kayz/promptblocks/internal/logger"
	"github.com/kayz/promptblocks/internal/program"
)

// ErrNotFound is returned by Get for an unknown program id.
var ErrNotFound = errors.New("program not found")

// Store handles persistence of programs using SQLite
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

// NewStore creates a new SQLite-backed program store at the given path
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	s := &Store{db: db, now: time.Now}

	if err := s.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return s, nil
}

// init creates the programs table if it doesn't exist
func (s *Store) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS programs (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			category    TEXT NOT NULL,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL,
			blocks      TEXT NOT NULL DEFAULT '[]'
		);

		CREATE INDEX IF NOT EXISTS idx_programs_updated ON programs(updated_at);
	`)
	return err
}

// Get loads one program.
func (s *Store) Get(id string) (*program.Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT id, name, category, created_at, updated_at, blocks
		FROM programs
		WHERE id = ?
	`, id)

	p, err := scanProgram(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	return p, nil
}

// List returns every program, most recently updated first.
func (s *Store) List() ([]program.Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, name, category, created_at, updated_at, blocks
		FROM programs
		ORDER BY updated_at DESC, name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query programs: %w", err)
	}
	defer rows.Close()

	programs := []program.Program{}
	for rows.Next() {
		p, err := scanProgram(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan program: %w", err)
		}
		programs = append(programs, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate programs: %w", err)
	}
	return programs, nil
}

// Put upserts p, stamping UpdatedAt. The stored CreatedAt wins on update; on
// insert a zero CreatedAt is set to now.
func (s *Store) Put(p program.Program) (program.Program, error) {
	return s.put(p, false)
}

func (s *Store) put(p program.Program, keepTimes bool) (program.Program, error) {
	if p.ID == "" {
		return p, fmt.Errorf("program id is required")
	}
	if err := program.Validate(p); err != nil {
		return p, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	out := p.Clone()
	if !keepTimes || out.UpdatedAt.IsZero() {
		out.UpdatedAt = now
	}
	out.UpdatedAt = out.UpdatedAt.UTC()
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now
	}
	if out.Blocks == nil {
		out.Blocks = []block.Instance{}
	}

	blocksJSON, err := json.Marshal(out.Blocks)
	if err != nil {
		return p, fmt.Errorf("failed to marshal blocks: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO programs (id, name, category, created_at, updated_at, blocks)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, category=excluded.category,
			updated_at=excluded.updated_at, blocks=excluded.blocks
	`, out.ID, out.Name, out.Category, formatTime(out.CreatedAt), formatTime(out.UpdatedAt), string(blocksJSON))
	if err != nil {
		return p, fmt.Errorf("failed to save program %s: %w", out.ID, err)
	}

	var createdAt string
	if err := s.db.QueryRow(`SELECT created_at FROM programs WHERE id = ?`, out.ID).Scan(&createdAt); err == nil {
		if t, err := parseTime(createdAt); err == nil {
			out.CreatedAt = t
		}
	}
	return out, nil
}

// Delete removes a program. Unknown ids are ignored.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM programs WHERE id = ?", id)
	return err
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// scanner interface for both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanProgram(sc scanner) (*program.Program, error) {
	var (
		p                    program.Program
		createdAt, updatedAt string
		blocksJSON           sql.NullString
	)
	if err := sc.Scan(&p.ID, &p.Name, &p.Category, &createdAt, &updatedAt, &blocksJSON); err != nil {
		return nil, err
	}

	if t, err := parseTime(createdAt); err == nil {
		p.CreatedAt = t
	}
	if t, err := parseTime(updatedAt); err == nil {
		p.UpdatedAt = t
	}

	blocks, err := block.DecodeList([]byte(blocksJSON.String))
	if err != nil {
		logger.Warn("[Store] Program %s has unreadable blocks, loading it empty: %v", p.ID, err)
		blocks = []block.Instance{}
	}
	p.Blocks = blocks
	return &p, nil
}

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
