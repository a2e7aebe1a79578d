package applier

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// SplitDocuments decodes a multi-document YAML payload into ordered
// Documents, preserving source order. Empty documents are skipped.
// Every kept document must carry kind and metadata.name.
func SplitDocuments(payload []byte) ([]Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(payload))

	var docs []Document
	for i := 0; ; i++ {
		var node yaml.Node
		err := dec.Decode(&node)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i+1, err)
		}

		var raw struct {
			Kind     string `yaml:"kind"`
			Metadata struct {
				Name      string `yaml:"name"`
				Namespace string `yaml:"namespace"`
			} `yaml:"metadata"`
		}
		if err := node.Decode(&raw); err != nil {
			return nil, fmt.Errorf("document %d: %w", i+1, err)
		}
		if raw.Kind == "" && raw.Metadata.Name == "" {
			// Blank separator document.
			continue
		}
		if raw.Kind == "" {
			return nil, fmt.Errorf("document %d: missing kind", i+1)
		}
		if raw.Metadata.Name == "" {
			return nil, fmt.Errorf("document %d (%s): missing metadata.name", i+1, raw.Kind)
		}

		out, err := yaml.Marshal(&node)
		if err != nil {
			return nil, fmt.Errorf("document %d (%s): %w", i+1, raw.Kind, err)
		}

		docs = append(docs, Document{
			Kind:      raw.Kind,
			Name:      raw.Metadata.Name,
			Namespace: raw.Metadata.Namespace,
			Payload:   out,
		})
	}
	return docs, nil
}
