// Package diagnose extracts a human-readable failure message from raw
// process output.
//
// Extraction is driven by an ordered rule table evaluated top to bottom;
// the first rule that matches wins. Keeping the table external to the
// runner's control flow makes the fragile string matching independently
// testable.
package diagnose

import (
	"fmt"
	"regexp"
	"strings"
)

// Rule configures a single extraction rule.
type Rule struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`

	// For type=regex.
	Pattern string `json:"pattern" yaml:"pattern"`
	Group   int    `json:"group" yaml:"group"`

	// For type=json_payload: a dot path evaluated against the first
	// JSON object embedded in a matching output line.
	JSONPath string `json:"json_path" yaml:"json_path"`
}

type extractor interface {
	Name() string
	Extract(data []byte) (string, bool)
}

// Table is a compiled, ordered set of extraction rules.
type Table struct {
	extractors []extractor
}

// Compile validates and compiles a rule list.
func Compile(rules []Rule) (*Table, error) {
	extractors := make([]extractor, 0, len(rules))
	for i, r := range rules {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			return nil, fmt.Errorf("rule[%d].name is required", i)
		}
		switch strings.ToLower(strings.TrimSpace(r.Type)) {
		case "json_payload":
			p, err := CompileJSONPath(r.JSONPath)
			if err != nil {
				return nil, fmt.Errorf("rule[%d].json_path invalid: %w", i, err)
			}
			extractors = append(extractors, &jsonPayloadExtractor{name: name, path: p})
		case "regex":
			re, err := regexp.Compile(r.Pattern)
			if err != nil {
				return nil, fmt.Errorf("rule[%d].pattern invalid: %w", i, err)
			}
			if r.Group < 0 {
				return nil, fmt.Errorf("rule[%d].group must be >= 0", i)
			}
			extractors = append(extractors, &regexExtractor{name: name, re: re, group: r.Group})
		default:
			return nil, fmt.Errorf("rule[%d].type %q is not supported", i, r.Type)
		}
	}
	return &Table{extractors: extractors}, nil
}

// DefaultRules covers the automation tooling this backend shells out to.
// Structured failure payloads are preferred over marker lines; raw stderr
// is the fallback handled by Extract itself.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "structured_failure_msg", Type: "json_payload", JSONPath: "msg"},
		{Name: "ansible_fatal", Type: "regex", Pattern: `fatal: \[[^\]]+\]: FAILED! => (.*)`, Group: 1},
		{Name: "error_marker", Type: "regex", Pattern: `(?m)^(?:ERROR|Error|error):?\s+(.+)$`, Group: 1},
	}
}

// MustDefault compiles DefaultRules and panics on failure. The default
// table is static, so a compile failure is a programming error.
func MustDefault() *Table {
	t, err := Compile(DefaultRules())
	if err != nil {
		panic(err)
	}
	return t
}

// Extract scans stdout then stderr with each rule in order and returns
// the first extracted message. When no rule matches it falls back to
// trimmed stderr, then to a generic message.
func (t *Table) Extract(stdout, stderr []byte) string {
	for _, ex := range t.extractors {
		for _, data := range [][]byte{stdout, stderr} {
			if len(data) == 0 {
				continue
			}
			if msg, ok := ex.Extract(data); ok {
				msg = strings.TrimSpace(msg)
				if msg != "" {
					return msg
				}
			}
		}
	}
	if msg := strings.TrimSpace(string(stderr)); msg != "" {
		return msg
	}
	return "command failed with no diagnostic output"
}

type regexExtractor struct {
	name  string
	re    *regexp.Regexp
	group int
}

func (e *regexExtractor) Name() string { return e.name }

func (e *regexExtractor) Extract(data []byte) (string, bool) {
	m := e.re.FindSubmatch(data)
	if len(m) == 0 || e.group >= len(m) {
		return "", false
	}
	return string(m[e.group]), true
}
