package compiler

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/kayz/promptblocks/internal/block"
)

func role(s string) block.Instance {
	return block.Instance{ID: "role", Type: block.Role, Data: block.RoleData{Role: s}}
}

func task(s string) block.Instance {
	return block.Instance{ID: "task", Type: block.Task, Data: block.TaskData{Task: s}}
}

func constraints(items ...string) block.Instance {
	return block.Instance{ID: "constraints", Type: block.Constraints, Data: block.ConstraintsData{Items: items}}
}

func outputFormat(f block.Format, schema string) block.Instance {
	return block.Instance{ID: "format", Type: block.OutputFormat, Data: block.OutputFormatData{Format: f, Schema: schema}}
}

func examples(pairs ...block.Example) block.Instance {
	return block.Instance{ID: "examples", Type: block.Examples, Data: block.ExamplesData{Examples: pairs}}
}

func TestCompileEmpty(t *testing.T) {
	if got := Compile(nil); got != "" {
		t.Fatalf("Compile(nil) = %q", got)
	}
	if got := Compile([]block.Instance{}); got != "" {
		t.Fatalf("Compile([]) = %q", got)
	}
}

func TestCompileSections(t *testing.T) {
	cases := []struct {
		name   string
		blocks []block.Instance
		want   string
	}{
		{
			name:   "role",
			blocks: []block.Instance{role("helpful assistant")},
			want:   "ROLE\nhelpful assistant",
		},
		{
			name:   "role trimmed",
			blocks: []block.Instance{role("  \tsenior editor \n")},
			want:   "ROLE\nsenior editor",
		},
		{
			name:   "context",
			blocks: []block.Instance{{Type: block.Context, Data: block.ContextData{Context: " quarterly report "}}},
			want:   "CONTEXT\nquarterly report",
		},
		{
			name:   "tone",
			blocks: []block.Instance{{Type: block.Tone, Data: block.ToneData{Tone: "friendly"}}},
			want:   "TONE\nfriendly",
		},
		{
			name:   "constraints drop blanks",
			blocks: []block.Instance{constraints("Be concise", "", "  ", "No jargon")},
			want:   "CONSTRAINTS\n- Be concise\n- No jargon",
		},
		{
			name:   "constraints trim items",
			blocks: []block.Instance{constraints("  one ", "two\n")},
			want:   "CONSTRAINTS\n- one\n- two",
		},
		{
			name:   "plain format",
			blocks: []block.Instance{outputFormat(block.FormatPlain, "")},
			want:   "OUTPUT FORMAT\nRespond in plain text.",
		},
		{
			name:   "bullet format",
			blocks: []block.Instance{outputFormat(block.FormatBullet, "ignored")},
			want:   "OUTPUT FORMAT\nRespond in bullet points.",
		},
		{
			name:   "json without schema",
			blocks: []block.Instance{outputFormat(block.FormatJSON, "")},
			want:   "OUTPUT FORMAT\nRespond in JSON format.",
		},
		{
			name:   "json blank schema",
			blocks: []block.Instance{outputFormat(block.FormatJSON, "   \n")},
			want:   "OUTPUT FORMAT\nRespond in JSON format.",
		},
		{
			name:   "json with schema",
			blocks: []block.Instance{outputFormat(block.FormatJSON, ` {"a":1} `)},
			want:   "OUTPUT FORMAT\nRespond in JSON format.\n\nSchema:\n{\"a\":1}",
		},
		{
			name:   "unset format reads as plain",
			blocks: []block.Instance{outputFormat("", "")},
			want:   "OUTPUT FORMAT\nRespond in plain text.",
		},
		{
			name:   "unknown format reads as plain",
			blocks: []block.Instance{outputFormat("xml", "")},
			want:   "OUTPUT FORMAT\nRespond in plain text.",
		},
		{
			name: "examples drop blank pairs",
			blocks: []block.Instance{examples(
				block.Example{Input: "hi", Output: "hello"},
				block.Example{Input: "", Output: ""},
			)},
			want: "EXAMPLES\nExample 1\nInput: hi\nOutput: hello",
		},
		{
			name: "examples renumber and partial pairs",
			blocks: []block.Instance{examples(
				block.Example{Input: " ", Output: "\t"},
				block.Example{Input: "only input"},
				block.Example{Output: " only output "},
			)},
			want: "EXAMPLES\nExample 1\nInput: only input\n\nExample 2\nOutput: only output",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Compile(tc.blocks); got != tc.want {
				t.Fatalf("Compile mismatch\n got: %q\nwant: %q", got, tc.want)
			}
		})
	}
}

func TestCompileSuppressesBlankBlocks(t *testing.T) {
	blank := []block.Instance{
		role("   "),
		task(""),
		{Type: block.Context, Data: block.ContextData{Context: "\n\t"}},
		constraints("", " "),
		constraints(),
		{Type: block.Tone, Data: block.ToneData{}},
		examples(block.Example{Input: " ", Output: ""}),
		examples(),
	}
	if got := Compile(blank); got != "" {
		t.Fatalf("blank blocks produced output: %q", got)
	}

	for _, typ := range block.AllTypes() {
		got := Compile([]block.Instance{block.New(typ)})
		if typ == block.OutputFormat {
			if got != "OUTPUT FORMAT\nRespond in plain text." {
				t.Fatalf("default output format = %q", got)
			}
			continue
		}
		if got != "" {
			t.Fatalf("default %s block produced %q", typ, got)
		}
	}
}

func TestCompileJoinsWithBlankLine(t *testing.T) {
	got := Compile([]block.Instance{role("X"), task("Y")})
	want := "ROLE\nX\n\nTASK\nY"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if strings.HasSuffix(got, "\n") {
		t.Fatalf("output has trailing newline")
	}

	// A blank block in the middle must not leave a double separator behind.
	got = Compile([]block.Instance{role("X"), task(" "), constraints("Z")})
	want = "ROLE\nX\n\nCONSTRAINTS\n- Z"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestCompilePreservesOrder(t *testing.T) {
	set := []block.Instance{
		role("r"),
		task("t"),
		{Type: block.Context, Data: block.ContextData{Context: "c"}},
		constraints("k"),
		{Type: block.Tone, Data: block.ToneData{Tone: "n"}},
		outputFormat(block.FormatBullet, ""),
		examples(block.Example{Input: "i"}),
	}

	permute(set, 0, func(p []block.Instance) {
		out := Compile(p)
		last := -1
		for _, b := range p {
			marker := block.Heading(b.Type) + "\n"
			idx := strings.Index(out, marker)
			if idx == -1 {
				t.Fatalf("heading %q missing from %q", marker, out)
			}
			if idx <= last {
				t.Fatalf("heading %q out of order in %q", marker, out)
			}
			last = idx
		}
		if n := len(Sections(p)); n != len(p) {
			t.Fatalf("expected %d sections, got %d", len(p), n)
		}
	})
}

// permute calls fn with every ordering of items[k:] in place.
func permute(items []block.Instance, k int, fn func([]block.Instance)) {
	if k == len(items) {
		fn(items)
		return
	}
	for i := k; i < len(items); i++ {
		items[k], items[i] = items[i], items[k]
		permute(items, k+1, fn)
		items[k], items[i] = items[i], items[k]
	}
}

func TestCompileIsPure(t *testing.T) {
	blocks := []block.Instance{
		role(" r "),
		constraints(" a ", "", "b"),
		examples(block.Example{Input: " i ", Output: " o "}),
	}
	before, _ := json.Marshal(blocks)

	first := Compile(blocks)
	second := Compile(blocks)
	if first != second {
		t.Fatalf("compile not deterministic:\n%q\n%q", first, second)
	}

	after, _ := json.Marshal(blocks)
	if string(before) != string(after) {
		t.Fatalf("compile mutated its input")
	}
}

func TestCompileOmitsUnknownAndNilData(t *testing.T) {
	var unknown block.Instance
	if err := json.Unmarshal([]byte(`{"id":"u","type":"persona","data":{"name":"x"}}`), &unknown); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	blocks := []block.Instance{
		unknown,
		{ID: "nil", Type: block.Role},
		role("kept"),
	}
	if got := Compile(blocks); got != "ROLE\nkept" {
		t.Fatalf("got %q", got)
	}
}

func TestCompileNilDataUsesDefaults(t *testing.T) {
	tests := []struct {
		name   string
		blocks []block.Instance
		want   string
	}{
		{
			name:   "output format without data",
			blocks: []block.Instance{{ID: "f", Type: block.OutputFormat}},
			want:   "OUTPUT FORMAT\nRespond in plain text.",
		},
		{
			name:   "blank defaults stay silent",
			blocks: []block.Instance{{ID: "c", Type: block.Constraints}, {ID: "e", Type: block.Examples}, role("kept")},
			want:   "ROLE\nkept",
		},
	}
	for _, tt := range tests {
		if got := Compile(tt.blocks); got != tt.want {
			t.Fatalf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}

	decoded, err := block.DecodeList([]byte(`[{"id":"f","type":"output_format"}]`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if Compile(decoded) != Compile([]block.Instance{{ID: "f", Type: block.OutputFormat}}) {
		t.Fatalf("nil data and missing data should compile alike")
	}
}

func TestCompileMalformedJSON(t *testing.T) {
	blocks, err := block.DecodeList([]byte(`[
		{"id":"1","type":"role","data":{"role":["not","text"]}},
		{"id":"2","type":"constraints","data":{"items":[1,"  keep  ",null]}},
		{"id":"3","type":"output-format","data":{}},
		{"id":"4","type":"examples","data":{"examples":{"input":"x"}}}
	]`))
	if err != nil {
		t.Fatalf("DecodeList: %v", err)
	}
	want := "CONSTRAINTS\n- keep\n\nOUTPUT FORMAT\nRespond in plain text."
	if got := Compile(blocks); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSectionsCarryBlockIdentity(t *testing.T) {
	sections := Sections([]block.Instance{role("a"), task(""), constraints("c")})
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}
	if sections[0].BlockID != "role" || sections[1].BlockID != "constraints" {
		t.Fatalf("unexpected block ids: %+v", sections)
	}
	if sections[1].String() != "CONSTRAINTS\n- c" {
		t.Fatalf("unexpected section text %q", sections[1].String())
	}
}

func TestMeasure(t *testing.T) {
	if got := Measure(""); got != (Stats{}) {
		t.Fatalf("Measure(\"\") = %+v", got)
	}
	got := Measure("ROLE\nhelpful assistant")
	want := Stats{Chars: 22, Words: 3, Lines: 2}
	if got != want {
		t.Fatalf("Measure = %+v, want %+v", got, want)
	}
}
