package block

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type wireInstance struct {
	ID   string          `json:"id"`
	Type BlockType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

// MarshalJSON writes {"id", "type", "data"}.
func (in Instance) MarshalJSON() ([]byte, error) {
	w := wireInstance{ID: in.ID, Type: in.Type}
	switch {
	case in.Data != nil:
		data, err := json.Marshal(normalise(in.Data))
		if err != nil {
			return nil, err
		}
		w.Data = data
	case len(in.raw) > 0:
		w.Data = in.raw
	default:
		w.Data = json.RawMessage("{}")
	}
	return json.Marshal(w)
}

// UnmarshalJSON reads a block leniently. Missing or wrong-typed fields become
// their empty value and unknown types are kept with nil Data. Only input that
// is not a JSON object is rejected.
func (in *Instance) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return fmt.Errorf("block: expected object: %w", err)
	}
	if fields == nil {
		return fmt.Errorf("block: expected object, got null")
	}

	rawType := str(fields, "type")
	t, ok := ParseType(rawType)

	*in = Instance{ID: str(fields, "id")}
	if !ok {
		in.Type = BlockType(rawType)
		if raw := fields["data"]; len(raw) > 0 {
			in.raw = append([]byte(nil), raw...)
		}
		return nil
	}
	in.Type = t
	in.Data = DecodeData(t, fields["data"])
	return nil
}

// DecodeData builds the Data for t from a JSON payload using the same lenient
// rules as block decoding. It returns nil only for unknown types.
func DecodeData(t BlockType, raw json.RawMessage) Data {
	var fields map[string]json.RawMessage
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &fields); err != nil {
			fields = nil
		}
	}

	switch t {
	case Role:
		return RoleData{Role: str(fields, "role")}
	case Task:
		return TaskData{Task: str(fields, "task")}
	case Context:
		return ContextData{Context: str(fields, "context")}
	case Tone:
		return ToneData{Tone: str(fields, "tone")}
	case Constraints:
		key := "items"
		if _, ok := fields[key]; !ok {
			key = "constraints"
		}
		return ConstraintsData{Items: strList(fields, key)}
	case OutputFormat:
		schema := str(fields, "schema")
		if schema == "" {
			schema = str(fields, "jsonSchema")
		}
		return OutputFormatData{Format: ParseFormat(str(fields, "format")), Schema: schema}
	case Examples:
		return ExamplesData{Examples: examples(fields, "examples")}
	default:
		return nil
	}
}

// normalise fills nil containers so they encode as [] rather than null.
func normalise(d Data) Data {
	switch v := d.(type) {
	case ConstraintsData:
		if v.Items == nil {
			v.Items = []string{}
		}
		return v
	case ExamplesData:
		if v.Examples == nil {
			v.Examples = []Example{}
		}
		return v
	case OutputFormatData:
		v.Format = ParseFormat(string(v.Format))
		return v
	}
	return d
}

func str(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func strList(fields map[string]json.RawMessage, key string) []string {
	raw, ok := fields[key]
	if !ok {
		return []string{}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			s = ""
		}
		out = append(out, s)
	}
	return out
}

func examples(fields map[string]json.RawMessage, key string) []Example {
	raw, ok := fields[key]
	if !ok {
		return []Example{}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return []Example{}
	}
	out := make([]Example, 0, len(items))
	for _, item := range items {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(item, &obj); err != nil {
			obj = nil
		}
		out = append(out, Example{Input: str(obj, "input"), Output: str(obj, "output")})
	}
	return out
}

// DecodeList reads a JSON array of blocks. Elements that are not objects are
// dropped rather than failing the whole list.
func DecodeList(b []byte) ([]Instance, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return []Instance{}, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, fmt.Errorf("block list: %w", err)
	}
	out := make([]Instance, 0, len(items))
	for _, item := range items {
		var in Instance
		if err := json.Unmarshal(item, &in); err != nil {
			continue
		}
		out = append(out, in)
	}
	return out, nil
}
