// Package catalog exposes the automation workspace read-only: cluster
// templates, discovered playbooks, and the credential audit of the
// workspace vars file. Nothing here mutates the workspace.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Template is a predefined cluster configuration offered to clients.
type Template struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
	Version     string   `json:"version"`
}

// BuiltinTemplates are the cluster templates the UI offers.
var BuiltinTemplates = []Template{
	{
		ID:          "rosa-network-basic",
		Name:        "ROSA with Network Automation",
		Description: "Basic ROSA HCP cluster with automated VPC/subnet creation",
		Features:    []string{"network_automation"},
		Version:     "4.20",
	},
	{
		ID:          "rosa-full-automation",
		Name:        "ROSA Full Automation",
		Description: "ROSA HCP cluster with network and role automation",
		Features:    []string{"network_automation", "role_automation"},
		Version:     "4.20",
	},
}

// Catalog reads templates and playbooks from a workspace root.
type Catalog struct {
	root      string
	templates []Template
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithTemplates overrides the built-in template set.
func WithTemplates(templates []Template) Option {
	return func(c *Catalog) { c.templates = templates }
}

func New(root string, opts ...Option) *Catalog {
	c := &Catalog{root: root, templates: BuiltinTemplates}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Root returns the workspace root directory.
func (c *Catalog) Root() string {
	return c.root
}

// Templates lists the available cluster templates.
func (c *Catalog) Templates() []Template {
	out := make([]Template, len(c.templates))
	copy(out, c.templates)
	return out
}

// Template looks a template up by id.
func (c *Catalog) Template(id string) (Template, bool) {
	for _, t := range c.templates {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}

// playbookPatterns locate playbooks in the workspace. Vendored roles
// and collections carry their own playbooks that are not entrypoints.
var playbookPatterns = []string{
	"*.yaml",
	"*.yml",
	"playbooks/**/*.{yaml,yml}",
}

// Playbooks discovers playbook files relative to the workspace root,
// sorted for stable listings.
func (c *Catalog) Playbooks() ([]string, error) {
	seen := make(map[string]bool)
	fsys := os.DirFS(c.root)

	for _, pattern := range playbookPatterns {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		for _, m := range matches {
			seen[m] = true
		}
	}

	out := make([]string, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}

// HasPlaybook reports whether name resolves to a discovered playbook.
func (c *Catalog) HasPlaybook(name string) (bool, error) {
	books, err := c.Playbooks()
	if err != nil {
		return false, err
	}
	clean := filepath.ToSlash(filepath.Clean(name))
	for _, b := range books {
		if b == clean {
			return true, nil
		}
	}
	return false, nil
}
