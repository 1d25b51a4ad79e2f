// Package block defines the closed set of prompt block variants, their data
// shapes, and how fresh blocks are constructed.
package block

import (
	"strings"

	"github.com/google/uuid"
)

// BlockType identifies a block variant. The set is fixed.
type BlockType string

const (
	Role         BlockType = "role"
	Task         BlockType = "task"
	Context      BlockType = "context"
	Constraints  BlockType = "constraints"
	Tone         BlockType = "tone"
	OutputFormat BlockType = "output_format"
	Examples     BlockType = "examples"
)

// AllTypes returns every block type in library order.
func AllTypes() []BlockType {
	return []BlockType{Role, Task, Context, Constraints, Tone, OutputFormat, Examples}
}

// Valid reports whether t is one of the known variants.
func (t BlockType) Valid() bool {
	_, ok := metas[t]
	return ok
}

// ParseType maps a wire name to a BlockType. Older exports spelled the output
// format type with a dash; both forms are accepted.
func ParseType(s string) (BlockType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "output-format", "outputformat":
		return OutputFormat, true
	}
	t := BlockType(s)
	return t, t.Valid()
}

// Data is the per-variant payload of a block. Only the types in this package
// implement it, so a type switch over Data is exhaustive.
type Data interface {
	Kind() BlockType
	sealed()
}

type RoleData struct {
	Role string `json:"role"`
}

type TaskData struct {
	Task string `json:"task"`
}

type ContextData struct {
	Context string `json:"context"`
}

type ConstraintsData struct {
	Items []string `json:"items"`
}

type ToneData struct {
	Tone string `json:"tone"`
}

// Format is the response style requested by an output format block.
type Format string

const (
	FormatPlain  Format = "plain"
	FormatBullet Format = "bullet"
	FormatJSON   Format = "json"
)

var formatSeparators = strings.NewReplacer(" ", "", "_", "", "-", "")

// ParseFormat normalises a format name. Case, spaces, underscores and dashes
// are ignored, so "bullet list", "bullet_list" and "bulletList" agree.
// Anything unrecognised is plain.
func ParseFormat(s string) Format {
	switch formatSeparators.Replace(strings.ToLower(strings.TrimSpace(s))) {
	case "bullet", "bulletlist", "bullets", "bulletpoints":
		return FormatBullet
	case "json":
		return FormatJSON
	default:
		return FormatPlain
	}
}

type OutputFormatData struct {
	Format Format `json:"format"`
	Schema string `json:"schema"`
}

// Example is one input/output demonstration pair.
type Example struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

type ExamplesData struct {
	Examples []Example `json:"examples"`
}

func (RoleData) Kind() BlockType         { return Role }
func (TaskData) Kind() BlockType         { return Task }
func (ContextData) Kind() BlockType      { return Context }
func (ConstraintsData) Kind() BlockType  { return Constraints }
func (ToneData) Kind() BlockType         { return Tone }
func (OutputFormatData) Kind() BlockType { return OutputFormat }
func (ExamplesData) Kind() BlockType     { return Examples }

func (RoleData) sealed()         {}
func (TaskData) sealed()         {}
func (ContextData) sealed()      {}
func (ConstraintsData) sealed()  {}
func (ToneData) sealed()         {}
func (OutputFormatData) sealed() {}
func (ExamplesData) sealed()     {}

// Instance is one block placed in a program.
type Instance struct {
	ID   string
	Type BlockType
	// Data is nil for block types this build does not know.
	Data Data

	// raw keeps the undecoded payload of unknown types so they survive a
	// load/save cycle.
	raw []byte
}

// NewID returns a fresh block or program identifier.
func NewID() string {
	return uuid.NewString()
}

// DefaultData returns the empty value for t. Every call allocates new
// containers. Unknown types yield nil.
func DefaultData(t BlockType) Data {
	switch t {
	case Role:
		return RoleData{}
	case Task:
		return TaskData{}
	case Context:
		return ContextData{}
	case Constraints:
		return ConstraintsData{Items: []string{""}}
	case Tone:
		return ToneData{}
	case OutputFormat:
		return OutputFormatData{Format: FormatPlain}
	case Examples:
		return ExamplesData{Examples: []Example{}}
	default:
		return nil
	}
}

// New creates a block of type t with a fresh id and default data.
func New(t BlockType) Instance {
	return Instance{ID: NewID(), Type: t, Data: DefaultData(t)}
}

// Clone deep-copies d.
func Clone(d Data) Data {
	switch v := d.(type) {
	case ConstraintsData:
		if v.Items != nil {
			v.Items = append([]string(nil), v.Items...)
		}
		return v
	case ExamplesData:
		if v.Examples != nil {
			v.Examples = append([]Example(nil), v.Examples...)
		}
		return v
	default:
		return d
	}
}

// Copy returns a deep copy of in, keeping its id.
func (in Instance) Copy() Instance {
	out := in
	out.Data = Clone(in.Data)
	if in.raw != nil {
		out.raw = append([]byte(nil), in.raw...)
	}
	return out
}

// Duplicate returns a deep copy of in with a fresh id.
func Duplicate(in Instance) Instance {
	out := in.Copy()
	out.ID = NewID()
	return out
}
