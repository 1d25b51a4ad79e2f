// Package program holds the Program type and the editing operations applied
// to its ordered block list. Every operation returns a new Program and leaves
// its input untouched.
package program

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kayz/promptblocks/internal/block"
)

const (
	DefaultName     = "Untitled Program"
	DefaultCategory = "General"
)

var (
	ErrBlockNotFound = errors.New("block not found")
	ErrTypeMismatch  = errors.New("block data does not match block type")
	ErrDuplicateID   = errors.New("duplicate block id")
	ErrUnknownType   = errors.New("unknown block type")
)

// Program is a named, ordered collection of blocks. Block order is canvas
// order and is the order the compiler emits sections in.
type Program struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Category  string           `json:"category"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
	Blocks    []block.Instance `json:"blocks"`
}

// UnmarshalJSON decodes a program; malformed entries in the block list are
// dropped instead of failing the whole program. Timestamps may be RFC 3339
// strings or epoch milliseconds.
func (p *Program) UnmarshalJSON(b []byte) error {
	type alias Program
	var w struct {
		alias
		CreatedAt json.RawMessage `json:"createdAt"`
		UpdatedAt json.RawMessage `json:"updatedAt"`
		Blocks    json.RawMessage `json:"blocks"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	createdAt, err := ParseTimestamp(w.CreatedAt)
	if err != nil {
		return fmt.Errorf("program %s: createdAt: %w", w.ID, err)
	}
	updatedAt, err := ParseTimestamp(w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("program %s: updatedAt: %w", w.ID, err)
	}
	blocks, err := block.DecodeList(w.Blocks)
	if err != nil {
		return fmt.Errorf("program %s: %w", w.ID, err)
	}
	*p = Program(w.alias)
	p.CreatedAt = createdAt
	p.UpdatedAt = updatedAt
	p.Blocks = blocks
	return nil
}

// ParseTimestamp reads a JSON timestamp written either as an RFC 3339 string
// or as epoch milliseconds. Missing and null values are the zero time.
func ParseTimestamp(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, nil
	}
	if raw[0] == '"' {
		var t time.Time
		err := json.Unmarshal(raw, &t)
		return t, err
	}
	var ms json.Number
	if err := json.Unmarshal(raw, &ms); err != nil {
		return time.Time{}, fmt.Errorf("expected string or number, got %s", raw)
	}
	if n, err := ms.Int64(); err == nil {
		return time.UnixMilli(n).UTC(), nil
	}
	f, err := ms.Float64()
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(int64(f)).UTC(), nil
}

// New creates an empty program. Blank name or category fall back to defaults.
func New(name, category string, now time.Time) Program {
	return Program{
		ID:        block.NewID(),
		Name:      orDefault(name, DefaultName),
		Category:  orDefault(category, DefaultCategory),
		CreatedAt: now,
		UpdatedAt: now,
		Blocks:    []block.Instance{},
	}
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}

// Clone deep-copies p.
func (p Program) Clone() Program {
	out := p
	out.Blocks = make([]block.Instance, len(p.Blocks))
	for i, b := range p.Blocks {
		out.Blocks[i] = b.Copy()
	}
	return out
}

// Duplicate copies p under a new id and name; every block gets a fresh id.
func Duplicate(p Program, now time.Time) Program {
	out := p.Clone()
	out.ID = block.NewID()
	out.Name = p.Name + " (Copy)"
	out.CreatedAt = now
	out.UpdatedAt = now
	for i := range out.Blocks {
		out.Blocks[i].ID = block.NewID()
	}
	return out
}

// Rename updates name and category. Blank values keep the current ones.
func Rename(p Program, name, category string) Program {
	out := p.Clone()
	out.Name = orDefault(name, p.Name)
	out.Category = orDefault(category, p.Category)
	return out
}

// IndexOf returns the position of block id, or -1.
func (p Program) IndexOf(id string) int {
	for i, b := range p.Blocks {
		if b.ID == id {
			return i
		}
	}
	return -1
}

// Block returns the block with the given id.
func (p Program) Block(id string) (block.Instance, error) {
	i := p.IndexOf(id)
	if i < 0 {
		return block.Instance{}, fmt.Errorf("%w: %s", ErrBlockNotFound, id)
	}
	return p.Blocks[i].Copy(), nil
}

// AddBlock inserts a new default block of type t at index. An index outside
// [0, len] appends. It returns the updated program and the new block's id.
func AddBlock(p Program, t block.BlockType, index int) (Program, string, error) {
	if !t.Valid() {
		return p, "", fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	b := block.New(t)
	out, err := InsertBlock(p, b, index)
	return out, b.ID, err
}

// InsertBlock places in at index. An empty or already used id is replaced
// with a fresh one.
func InsertBlock(p Program, in block.Instance, index int) (Program, error) {
	if in.Data != nil && in.Data.Kind() != in.Type {
		return p, fmt.Errorf("%w: %s block with %s data", ErrTypeMismatch, in.Type, in.Data.Kind())
	}
	in = in.Copy()
	if in.ID == "" || p.IndexOf(in.ID) >= 0 {
		in.ID = block.NewID()
	}

	out := p.Clone()
	if index < 0 || index > len(out.Blocks) {
		index = len(out.Blocks)
	}
	out.Blocks = append(out.Blocks, block.Instance{})
	copy(out.Blocks[index+1:], out.Blocks[index:])
	out.Blocks[index] = in
	return out, nil
}

// MoveBlock moves block id to position to, clamped to the list bounds.
func MoveBlock(p Program, id string, to int) (Program, error) {
	from := p.IndexOf(id)
	if from < 0 {
		return p, fmt.Errorf("%w: %s", ErrBlockNotFound, id)
	}
	if to < 0 {
		to = 0
	}
	if to > len(p.Blocks)-1 {
		to = len(p.Blocks) - 1
	}

	out := p.Clone()
	moved := out.Blocks[from]
	out.Blocks = append(out.Blocks[:from], out.Blocks[from+1:]...)
	out.Blocks = append(out.Blocks, block.Instance{})
	copy(out.Blocks[to+1:], out.Blocks[to:])
	out.Blocks[to] = moved
	return out, nil
}

// DuplicateBlock inserts a copy of block id directly after it and returns
// the copy's id.
func DuplicateBlock(p Program, id string) (Program, string, error) {
	i := p.IndexOf(id)
	if i < 0 {
		return p, "", fmt.Errorf("%w: %s", ErrBlockNotFound, id)
	}
	dup := block.Duplicate(p.Blocks[i])
	out, err := InsertBlock(p, dup, i+1)
	return out, dup.ID, err
}

// RemoveBlock deletes block id.
func RemoveBlock(p Program, id string) (Program, error) {
	i := p.IndexOf(id)
	if i < 0 {
		return p, fmt.Errorf("%w: %s", ErrBlockNotFound, id)
	}
	out := p.Clone()
	out.Blocks = append(out.Blocks[:i], out.Blocks[i+1:]...)
	return out, nil
}

// UpdateBlock replaces the data of block id. The data variant must match the
// block's type.
func UpdateBlock(p Program, id string, data block.Data) (Program, error) {
	i := p.IndexOf(id)
	if i < 0 {
		return p, fmt.Errorf("%w: %s", ErrBlockNotFound, id)
	}
	if data == nil || data.Kind() != p.Blocks[i].Type {
		return p, fmt.Errorf("%w: block %s is %s", ErrTypeMismatch, id, p.Blocks[i].Type)
	}
	out := p.Clone()
	out.Blocks[i].Data = block.Clone(data)
	return out, nil
}

// UpdateBlockJSON decodes raw leniently for the block's type and applies it.
func UpdateBlockJSON(p Program, id string, raw json.RawMessage) (Program, error) {
	i := p.IndexOf(id)
	if i < 0 {
		return p, fmt.Errorf("%w: %s", ErrBlockNotFound, id)
	}
	data := block.DecodeData(p.Blocks[i].Type, raw)
	if data == nil {
		return p, fmt.Errorf("%w: %q", ErrUnknownType, p.Blocks[i].Type)
	}
	return UpdateBlock(p, id, data)
}

// Validate checks the block list invariants: ids are present and unique and
// every block's data matches its type.
func Validate(p Program) error {
	seen := make(map[string]struct{}, len(p.Blocks))
	for _, b := range p.Blocks {
		if strings.TrimSpace(b.ID) == "" {
			return fmt.Errorf("block of type %s has no id", b.Type)
		}
		if _, dup := seen[b.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateID, b.ID)
		}
		seen[b.ID] = struct{}{}
		if b.Data != nil && b.Data.Kind() != b.Type {
			return fmt.Errorf("%w: block %s is %s but holds %s data", ErrTypeMismatch, b.ID, b.Type, b.Data.Kind())
		}
	}
	return nil
}
