package persist

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/kayz/promptblocks/internal/block"
	"github.com/kayz/promptblocks/internal/logger"
	"github.com/kayz/promptblocks/internal/program"
)

// ImportJSON loads programs from a JSON array in the browser export format.
// Entries that do not look like a program are skipped. Imported programs keep
// their ids, so importing the same export twice overwrites rather than
// duplicates. It returns the number of programs stored.
func (s *Store) ImportJSON(data []byte) (int, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return 0, fmt.Errorf("parse program export: %w", err)
	}

	imported := 0
	for i, raw := range entries {
		if !isProgramLike(raw) {
			logger.Warn("[Store] Skipping export entry %d: not a program", i)
			continue
		}
		var p program.Program
		if err := json.Unmarshal(raw, &p); err != nil {
			logger.Warn("[Store] Skipping export entry %d: %v", i, err)
			continue
		}
		fixBlockIDs(&p)
		if _, err := s.put(p, true); err != nil {
			return imported, fmt.Errorf("import program %s: %w", p.ID, err)
		}
		imported++
	}
	return imported, nil
}

// ExportJSON writes every program as an indented JSON array.
func (s *Store) ExportJSON() ([]byte, error) {
	programs, err := s.List()
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(programs, "", "  ")
}

// MigrateFromJSON imports a legacy export file and renames it to .bak so it
// is only imported once. A missing file is not an error.
func (s *Store) MigrateFromJSON(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read %s: %w", path, err)
	}

	n, err := s.ImportJSON(data)
	if err != nil {
		return n, err
	}

	bakPath := path + ".bak"
	if err := os.Rename(path, bakPath); err != nil {
		logger.Warn("[Store] Failed to rename %s to %s: %v", path, bakPath, err)
	} else {
		logger.Info("[Store] Migrated %d programs from %s", n, path)
	}
	return n, nil
}

// isProgramLike requires the fields every stored program has: string id,
// name and category, timestamps as strings or epoch milliseconds, and an
// array of blocks.
func isProgramLike(raw json.RawMessage) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return false
	}
	for _, key := range []string{"id", "name", "category"} {
		var v string
		if err := json.Unmarshal(fields[key], &v); err != nil {
			return false
		}
		if key == "id" && strings.TrimSpace(v) == "" {
			return false
		}
	}
	for _, key := range []string{"createdAt", "updatedAt"} {
		if _, ok := fields[key]; !ok {
			return false
		}
		if _, err := program.ParseTimestamp(fields[key]); err != nil {
			return false
		}
	}
	var blocks []json.RawMessage
	if err := json.Unmarshal(fields["blocks"], &blocks); err != nil || blocks == nil {
		return false
	}
	return true
}

// fixBlockIDs gives blocks with missing or repeated ids a fresh one so the
// imported program satisfies the unique-id invariant.
func fixBlockIDs(p *program.Program) {
	seen := make(map[string]struct{}, len(p.Blocks))
	for i := range p.Blocks {
		id := strings.TrimSpace(p.Blocks[i].ID)
		if _, dup := seen[id]; id == "" || dup {
			id = block.NewID()
			p.Blocks[i].ID = id
		}
		seen[id] = struct{}{}
	}
}
