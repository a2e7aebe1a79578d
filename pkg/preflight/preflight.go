// Package preflight runs environment diagnostics before automation is
// attempted: CLI authentication, hub connectivity, workspace
// configuration. Checks reuse the status cache so running diagnostics
// repeatedly does not hammer the external tools.
package preflight

import (
	"context"
	"time"

	"github.com/provisionworks/orchard/pkg/statuscache"
)

// Outcome classifies one check result.
type Outcome string

const (
	OutcomePass Outcome = "pass"
	OutcomeWarn Outcome = "warn"
	OutcomeFail Outcome = "fail"
)

// Check names are stable strings used in API responses.
const (
	CheckAuth   = "cli.auth"
	CheckHub    = "hub.connection"
	CheckConfig = "workspace.config"
)

// Check is one diagnostic probe with a cache policy.
type Check struct {
	// ID is the stable check identifier.
	ID string

	// Name is the human-readable title.
	Name string

	// TTL bounds how long a successful probe satisfies re-runs.
	TTL time.Duration

	// Probe performs the underlying operation.
	Probe statuscache.Probe

	// Interpret turns the probe outcome into a result. Called with
	// the probe's value on success or its error on failure; exactly
	// one of the two is set.
	Interpret func(value any, err error) Result
}

// Result is one check's reported outcome.
type Result struct {
	Check      string  `json:"check"`
	Name       string  `json:"name"`
	Outcome    Outcome `json:"outcome"`
	Message    string  `json:"message"`
	FixCommand string  `json:"fix_command,omitempty"`
}

// Checker runs registered checks through a shared cache.
type Checker struct {
	cache  *statuscache.Cache
	checks []Check
}

func NewChecker(cache *statuscache.Cache, checks ...Check) *Checker {
	return &Checker{cache: cache, checks: checks}
}

// Register appends further checks.
func (c *Checker) Register(checks ...Check) {
	c.checks = append(c.checks, checks...)
}

// Checks lists the registered check IDs in registration order.
func (c *Checker) Checks() []string {
	ids := make([]string, 0, len(c.checks))
	for _, chk := range c.checks {
		ids = append(ids, chk.ID)
	}
	return ids
}

// Run executes the requested checks (all when ids is empty) and returns
// their results in registration order. Unknown ids are ignored.
func (c *Checker) Run(ctx context.Context, ids []string) []Result {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	var results []Result
	for _, chk := range c.checks {
		if len(want) > 0 && !want[chk.ID] {
			continue
		}

		value, err := c.cache.GetOrProbe(ctx, chk.ID, chk.TTL, chk.Probe)
		res := chk.Interpret(value, err)
		res.Check = chk.ID
		res.Name = chk.Name
		results = append(results, res)
	}
	return results
}
