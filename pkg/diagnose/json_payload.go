package diagnose

import (
	"encoding/json"
	"fmt"
	"strings"
)

// JSONPath is a minimal dot-path selector ("msg", "error.message").
// Automation tools embed failure payloads as single-line JSON objects,
// so nothing fancier is needed here.
type JSONPath struct {
	steps []string
}

func CompileJSONPath(expr string) (*JSONPath, error) {
	expr = strings.TrimSpace(expr)
	expr = strings.TrimPrefix(expr, "$")
	expr = strings.TrimPrefix(expr, ".")
	if expr == "" {
		return nil, fmt.Errorf("json_path is empty")
	}

	var steps []string
	for _, seg := range strings.Split(expr, ".") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		steps = append(steps, seg)
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("json_path has no steps")
	}
	return &JSONPath{steps: steps}, nil
}

func (p *JSONPath) eval(v any) (string, bool) {
	cur := v
	for _, step := range p.steps {
		m, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		cur, ok = m[step]
		if !ok {
			return "", false
		}
	}
	s, ok := cur.(string)
	return s, ok
}

// jsonPayloadExtractor scans output lines for an embedded JSON object and
// evaluates the configured path against the first one that parses.
type jsonPayloadExtractor struct {
	name string
	path *JSONPath
}

func (e *jsonPayloadExtractor) Name() string { return e.name }

func (e *jsonPayloadExtractor) Extract(data []byte) (string, bool) {
	for _, line := range strings.Split(string(data), "\n") {
		start := strings.IndexByte(line, '{')
		if start < 0 {
			continue
		}
		var v any
		if err := json.Unmarshal([]byte(line[start:]), &v); err != nil {
			continue
		}
		if msg, ok := e.path.eval(v); ok {
			return msg, true
		}
	}
	return "", false
}
