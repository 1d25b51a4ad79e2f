package persist

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kayz/promptblocks/internal/block"
	"github.com/kayz/promptblocks/internal/program"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(t *testing.T) (*Store, *clock) {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "data", "programs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	c := &clock{t: time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)}
	s.now = c.now
	return s, c
}

func sampleProgram(name string) program.Program {
	p := program.New(name, "Testing", time.Time{})
	p.Blocks = []block.Instance{
		{ID: "r", Type: block.Role, Data: block.RoleData{Role: "reviewer"}},
		{ID: "c", Type: block.Constraints, Data: block.ConstraintsData{Items: []string{"cite lines"}}},
	}
	return p
}

func TestPutAndGet(t *testing.T) {
	s, c := newTestStore(t)

	saved, err := s.Put(sampleProgram("Reviewer"))
	require.NoError(t, err)
	require.Equal(t, c.t, saved.CreatedAt)
	require.Equal(t, c.t, saved.UpdatedAt)

	got, err := s.Get(saved.ID)
	require.NoError(t, err)
	require.Equal(t, "Reviewer", got.Name)
	require.Equal(t, "Testing", got.Category)
	require.Equal(t, saved.Blocks, got.Blocks)
	require.True(t, saved.CreatedAt.Equal(got.CreatedAt))
}

func TestGetUnknownProgram(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Get("nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPutKeepsCreatedAt(t *testing.T) {
	s, c := newTestStore(t)

	first, err := s.Put(sampleProgram("Reviewer"))
	require.NoError(t, err)

	c.advance(time.Hour)
	edited := program.Rename(first, "Senior reviewer", "")
	edited.CreatedAt = time.Time{}
	second, err := s.Put(edited)
	require.NoError(t, err)
	require.True(t, first.CreatedAt.Equal(second.CreatedAt))
	require.Equal(t, c.t, second.UpdatedAt)

	got, err := s.Get(first.ID)
	require.NoError(t, err)
	require.Equal(t, "Senior reviewer", got.Name)
	require.True(t, first.CreatedAt.Equal(got.CreatedAt))
}

func TestPutRejectsInvalidProgram(t *testing.T) {
	s, _ := newTestStore(t)

	p := sampleProgram("Broken")
	p.Blocks[1].ID = p.Blocks[0].ID
	_, err := s.Put(p)
	require.ErrorIs(t, err, program.ErrDuplicateID)

	p = sampleProgram("No id")
	p.ID = ""
	_, err = s.Put(p)
	require.Error(t, err)
}

func TestListOrdersByUpdatedAt(t *testing.T) {
	s, c := newTestStore(t)

	list, err := s.List()
	require.NoError(t, err)
	require.NotNil(t, list)
	require.Empty(t, list)

	a, err := s.Put(sampleProgram("A"))
	require.NoError(t, err)
	c.advance(time.Millisecond)
	b, err := s.Put(sampleProgram("B"))
	require.NoError(t, err)
	c.advance(time.Second)
	_, err = s.Put(a)
	require.NoError(t, err)

	list, err = s.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, a.ID, list[0].ID)
	require.Equal(t, b.ID, list[1].ID)
}

func TestDelete(t *testing.T) {
	s, _ := newTestStore(t)

	saved, err := s.Put(sampleProgram("Gone"))
	require.NoError(t, err)
	require.NoError(t, s.Delete(saved.ID))
	require.NoError(t, s.Delete(saved.ID))

	_, err = s.Get(saved.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCorruptBlocksLoadEmpty(t *testing.T) {
	s, _ := newTestStore(t)

	saved, err := s.Put(sampleProgram("Corrupt"))
	require.NoError(t, err)
	_, err = s.db.Exec(`UPDATE programs SET blocks = '{not json' WHERE id = ?`, saved.ID)
	require.NoError(t, err)

	got, err := s.Get(saved.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Blocks)
	require.Empty(t, got.Blocks)
}

func TestImportJSON(t *testing.T) {
	s, _ := newTestStore(t)

	export := `[
		{
			"id": "p1", "name": "Legacy", "category": "General",
			"createdAt": "2025-01-02T03:04:05.000Z", "updatedAt": "2025-01-03T03:04:05.000Z",
			"blocks": [
				{"id": "b1", "type": "role", "data": {"role": "guide"}},
				{"id": "b1", "type": "task", "data": {"task": "explain"}},
				{"type": "tone", "data": {"tone": "warm"}}
			]
		},
		{"id": "p2", "name": "No blocks", "category": "General"},
		"garbage",
		{
			"id": "p3", "name": "Second", "category": "Work",
			"createdAt": "2025-02-01T00:00:00.000Z", "updatedAt": "2025-02-01T00:00:00.000Z",
			"blocks": []
		}
	]`

	n, err := s.ImportJSON([]byte(export))
	require.NoError(t, err)
	require.Equal(t, 2, n)

	got, err := s.Get("p1")
	require.NoError(t, err)
	require.Len(t, got.Blocks, 3)
	require.NoError(t, program.Validate(*got))
	require.Equal(t, 2025, got.CreatedAt.Year())
	require.Equal(t, time.Date(2025, 1, 3, 3, 4, 5, 0, time.UTC), got.UpdatedAt)

	_, err = s.Get("p2")
	require.ErrorIs(t, err, ErrNotFound)

	list, err := s.List()
	require.NoError(t, err)
	require.Equal(t, "p3", list[0].ID)

	_, err = s.ImportJSON([]byte(`{"id": "p1"}`))
	require.Error(t, err)
}

func TestImportJSONEpochMillisExport(t *testing.T) {
	s, _ := newTestStore(t)

	export := `[{
		"id": "a", "name": "From numbers", "category": "General",
		"createdAt": 1700000000000, "updatedAt": 1700000000000,
		"blocks": [
			{"id": "r", "type": "Role", "data": {"role": "Helpful Assistant"}},
			{"id": "c", "type": "Constraints", "data": {"constraints": ["Be brief", ""]}},
			{"id": "f", "type": "OutputFormat", "data": {"format": "bullet list", "schema": ""}}
		]
	}]`

	n, err := s.ImportJSON([]byte(export))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	got, err := s.Get("a")
	require.NoError(t, err)
	require.Equal(t, time.UnixMilli(1700000000000).UTC(), got.CreatedAt)
	require.Equal(t, time.UnixMilli(1700000000000).UTC(), got.UpdatedAt)
	require.Len(t, got.Blocks, 3)
	require.Equal(t, block.RoleData{Role: "Helpful Assistant"}, got.Blocks[0].Data)
	require.Equal(t, block.ConstraintsData{Items: []string{"Be brief", ""}}, got.Blocks[1].Data)
	require.Equal(t, block.OutputFormatData{Format: block.FormatBullet}, got.Blocks[2].Data)
}

func TestExportJSONRoundTrip(t *testing.T) {
	src, _ := newTestStore(t)
	_, err := src.Put(sampleProgram("One"))
	require.NoError(t, err)
	_, err = src.Put(sampleProgram("Two"))
	require.NoError(t, err)

	data, err := src.ExportJSON()
	require.NoError(t, err)

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 2)

	dst, _ := newTestStore(t)
	n, err := dst.ImportJSON(data)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	want, err := src.List()
	require.NoError(t, err)
	got, err := dst.List()
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		require.Equal(t, want[i].ID, got[i].ID)
		require.Equal(t, want[i].Blocks, got[i].Blocks)
	}
}

func TestMigrateFromJSON(t *testing.T) {
	s, _ := newTestStore(t)
	dir := t.TempDir()

	n, err := s.MigrateFromJSON(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	require.Zero(t, n)

	path := filepath.Join(dir, "programs.json")
	export := `[{"id":"p9","name":"Old","category":"General","createdAt":"2025-01-01T00:00:00Z","updatedAt":"2025-01-01T00:00:00Z","blocks":[]}]`
	require.NoError(t, os.WriteFile(path, []byte(export), 0644))

	n, err = s.MigrateFromJSON(path)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(path + ".bak")
	require.NoError(t, err)
}
