package resolver

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/yojana/internal/model"
	"github.com/xeipuuv/gojsonschema"
)

// schemeSchema describes one conforming record. Extra fields are tolerated.
const schemeSchema = `{
  "type": "object",
  "required": ["name", "benefit", "description", "eligibility", "ministry", "deadline", "applicationUrl"],
  "properties": {
    "name":           {"type": "string", "minLength": 1},
    "benefit":        {"type": "string"},
    "description":    {"type": "string"},
    "eligibility":    {"type": "string"},
    "ministry":       {"type": "string"},
    "deadline":       {"type": "string"},
    "applicationUrl": {"type": "string"}
  }
}`

// ErrNotArray is returned when the completion content is valid JSON but not an array
var ErrNotArray = errors.New("completion content is not a JSON array")

// RecordError describes one dropped element of the completion array
type RecordError struct {
	Index  int
	Issues []string
}

func (e RecordError) Error() string {
	return fmt.Sprintf("record %d: %s", e.Index, strings.Join(e.Issues, "; "))
}

// Parsed is the result of decoding completion content
type Parsed struct {
	Schemes []model.SchemeRecord
	Dropped []RecordError
}

// Parser decodes completion content into scheme records, validating each
// element against the scheme schema
type Parser struct {
	schema *gojsonschema.Schema
}

// NewParser compiles the record schema
func NewParser() (*Parser, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemeSchema))
	if err != nil {
		return nil, fmt.Errorf("compile scheme schema: %w", err)
	}
	return &Parser{schema: schema}, nil
}

// Parse decodes content as a JSON array of scheme objects. A syntax error or
// a non-array document is an error; non-conforming elements are dropped and
// reported in Parsed.Dropped.
func (p *Parser) Parse(content string) (*Parsed, error) {
	body := stripCodeFence(content)

	var raw json.RawMessage
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, fmt.Errorf("decode completion: %w", err)
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil, ErrNotArray
	}
	// "null" decodes into a nil slice without error
	if elements == nil {
		return nil, ErrNotArray
	}

	parsed := &Parsed{Schemes: make([]model.SchemeRecord, 0, len(elements))}
	for i, elem := range elements {
		result, err := p.schema.Validate(gojsonschema.NewBytesLoader(elem))
		if err != nil {
			parsed.Dropped = append(parsed.Dropped, RecordError{Index: i, Issues: []string{err.Error()}})
			continue
		}
		if !result.Valid() {
			issues := make([]string, len(result.Errors()))
			for j, desc := range result.Errors() {
				issues[j] = desc.String()
			}
			parsed.Dropped = append(parsed.Dropped, RecordError{Index: i, Issues: issues})
			continue
		}

		var rec model.SchemeRecord
		if err := json.Unmarshal(elem, &rec); err != nil {
			parsed.Dropped = append(parsed.Dropped, RecordError{Index: i, Issues: []string{err.Error()}})
			continue
		}
		parsed.Schemes = append(parsed.Schemes, rec)
	}

	return parsed, nil
}

// stripCodeFence removes surrounding whitespace and one Markdown code fence
// (``` or ```json) wrapping the whole content
func stripCodeFence(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// Drop the info string ("json") on the opening line
		if !strings.ContainsAny(s[:nl], "[{") {
			s = s[nl+1:]
		}
	}
	return strings.TrimSpace(s)
}
