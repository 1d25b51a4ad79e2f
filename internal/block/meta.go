package block

import (
	"fmt"
	"strings"
)

// Meta is the static display information for a block type.
type Meta struct {
	Type        BlockType `json:"type" yaml:"type"`
	Label       string    `json:"label" yaml:"label"`
	Description string    `json:"description" yaml:"description"`
	Heading     string    `json:"heading" yaml:"heading"`
}

var metas = map[BlockType]Meta{
	Role:         {Type: Role, Label: "Role", Description: "Define the AI persona or expertise", Heading: "ROLE"},
	Task:         {Type: Task, Label: "Task", Description: "Describe what the AI should do", Heading: "TASK"},
	Context:      {Type: Context, Label: "Context", Description: "Provide background information", Heading: "CONTEXT"},
	Constraints:  {Type: Constraints, Label: "Constraints", Description: "Set rules and limitations", Heading: "CONSTRAINTS"},
	Tone:         {Type: Tone, Label: "Tone", Description: "Specify the writing style", Heading: "TONE"},
	OutputFormat: {Type: OutputFormat, Label: "Output Format", Description: "Define the response structure", Heading: "OUTPUT FORMAT"},
	Examples:     {Type: Examples, Label: "Examples", Description: "Provide input/output examples", Heading: "EXAMPLES"},
}

// Describe returns the display metadata for t.
func Describe(t BlockType) (Meta, bool) {
	m, ok := metas[t]
	return m, ok
}

// Heading returns the upper-case section heading for t, or "" if t is unknown.
func Heading(t BlockType) string {
	return metas[t].Heading
}

// Library lists the metadata of every block type in library order.
func Library() []Meta {
	out := make([]Meta, 0, len(metas))
	for _, t := range AllTypes() {
		out = append(out, metas[t])
	}
	return out
}

// Summary is the one-line description shown on a collapsed block card.
func Summary(in Instance) string {
	switch d := in.Data.(type) {
	case RoleData:
		return orPlaceholder(d.Role, "No role set yet.")
	case TaskData:
		return orPlaceholder(d.Task, "No task set yet.")
	case ContextData:
		return orPlaceholder(d.Context, "No context set yet.")
	case ToneData:
		return orPlaceholder(d.Tone, "No tone set yet.")
	case ConstraintsData:
		n := 0
		for _, item := range d.Items {
			if strings.TrimSpace(item) != "" {
				n++
			}
		}
		if n == 0 {
			return "No constraints set yet."
		}
		return fmt.Sprintf("%d constraint(s)", n)
	case OutputFormatData:
		label := formatLabel(ParseFormat(string(d.Format)))
		if ParseFormat(string(d.Format)) == FormatJSON && strings.TrimSpace(d.Schema) != "" {
			label += " + schema"
		}
		return label
	case ExamplesData:
		n := 0
		for _, ex := range d.Examples {
			if strings.TrimSpace(ex.Input) != "" || strings.TrimSpace(ex.Output) != "" {
				n++
			}
		}
		if n == 0 {
			return "No examples set yet."
		}
		return fmt.Sprintf("%d example(s)", n)
	default:
		return fmt.Sprintf("Unsupported block type %q", in.Type)
	}
}

func orPlaceholder(s, placeholder string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return placeholder
}

func formatLabel(f Format) string {
	switch f {
	case FormatBullet:
		return "Bullet points"
	case FormatJSON:
		return "JSON"
	default:
		return "Plain text"
	}
}
