// Package compiler turns an ordered list of blocks into the final prompt text.
//
// Compilation is a pure projection: the same blocks always give the same
// text, nothing is retained between calls, and no input can make it fail.
package compiler

import (
	"fmt"
	"strings"

	"github.com/kayz/promptblocks/internal/block"
)

// Separator is placed between consecutive sections.
const Separator = "\n\n"

// Section is the text one block contributes to the prompt.
type Section struct {
	BlockID string          `json:"block_id"`
	Type    block.BlockType `json:"type"`
	Heading string          `json:"heading"`
	Body    string          `json:"body"`
}

// String renders the section as "HEADING\nBODY".
func (s Section) String() string {
	return s.Heading + "\n" + s.Body
}

// Compile renders blocks in order and joins the non-empty sections.
func Compile(blocks []block.Instance) string {
	return Render(Sections(blocks))
}

// Sections returns the sections blocks contribute, in block order. Blocks
// whose content is blank, or whose type is unknown, contribute nothing. A
// known type without data reads as that type's default data.
func Sections(blocks []block.Instance) []Section {
	var sections []Section
	for _, b := range blocks {
		data := b.Data
		if data == nil && b.Type.Valid() {
			data = block.DefaultData(b.Type)
		}
		body, ok := renderBody(data)
		if !ok {
			continue
		}
		sections = append(sections, Section{
			BlockID: b.ID,
			Type:    b.Type,
			Heading: block.Heading(data.Kind()),
			Body:    body,
		})
	}
	return sections
}

// Render joins sections with Separator. No sections gives "".
func Render(sections []Section) string {
	var out strings.Builder
	for i, s := range sections {
		if i > 0 {
			out.WriteString(Separator)
		}
		out.WriteString(s.Heading)
		out.WriteString("\n")
		out.WriteString(s.Body)
	}
	return out.String()
}

func renderBody(d block.Data) (string, bool) {
	switch v := d.(type) {
	case block.RoleData:
		return trimmed(v.Role)
	case block.TaskData:
		return trimmed(v.Task)
	case block.ContextData:
		return trimmed(v.Context)
	case block.ToneData:
		return trimmed(v.Tone)
	case block.ConstraintsData:
		return renderConstraints(v)
	case block.OutputFormatData:
		return renderOutputFormat(v), true
	case block.ExamplesData:
		return renderExamples(v)
	default:
		return "", false
	}
}

func trimmed(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != ""
}

func renderConstraints(d block.ConstraintsData) (string, bool) {
	var lines []string
	for _, item := range d.Items {
		if item = strings.TrimSpace(item); item != "" {
			lines = append(lines, "- "+item)
		}
	}
	if len(lines) == 0 {
		return "", false
	}
	return strings.Join(lines, "\n"), true
}

// renderOutputFormat always produces a directive; an unset or unknown format
// reads as plain text.
func renderOutputFormat(d block.OutputFormatData) string {
	switch block.ParseFormat(string(d.Format)) {
	case block.FormatBullet:
		return "Respond in bullet points."
	case block.FormatJSON:
		body := "Respond in JSON format."
		if schema := strings.TrimSpace(d.Schema); schema != "" {
			body += "\n\nSchema:\n" + schema
		}
		return body
	default:
		return "Respond in plain text."
	}
}

func renderExamples(d block.ExamplesData) (string, bool) {
	var parts []string
	for _, ex := range d.Examples {
		input := strings.TrimSpace(ex.Input)
		output := strings.TrimSpace(ex.Output)
		if input == "" && output == "" {
			continue
		}
		lines := []string{fmt.Sprintf("Example %d", len(parts)+1)}
		if input != "" {
			lines = append(lines, "Input: "+input)
		}
		if output != "" {
			lines = append(lines, "Output: "+output)
		}
		parts = append(parts, strings.Join(lines, "\n"))
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, "\n\n"), true
}
