// Package conditions normalizes Kubernetes-style resource status into
// the compact shape the UI renders: a single status word plus a short
// age string. Each resource kind declares which condition types count
// as its readiness signal and what to display while none of them is
// true yet.
package conditions

import (
	"fmt"
	"strings"
	"time"
)

// ConditionStatus mirrors the three-valued status found on Kubernetes
// resource conditions.
type ConditionStatus string

const (
	ConditionTrue    ConditionStatus = "True"
	ConditionFalse   ConditionStatus = "False"
	ConditionUnknown ConditionStatus = "Unknown"
)

// Condition is one entry of a resource's status.conditions list.
type Condition struct {
	Type    string          `json:"type"`
	Status  ConditionStatus `json:"status"`
	Reason  string          `json:"reason,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Resource is the normalized view served to clients.
type Resource struct {
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	Namespace string `json:"namespace,omitempty"`
	Version   string `json:"version,omitempty"`
	Age       string `json:"age"`
	Status    string `json:"status"`
}

// kindProfile describes how a kind expresses readiness.
type kindProfile struct {
	// readyAliases are condition types that, when True, mean the
	// resource is Ready. Checked in order.
	readyAliases []string
	// pending is displayed while no alias condition is true.
	pending string
}

// Alias casing varies across controller versions (ROSAClusterReady vs
// RosaClusterReady); matching is case-insensitive so one canonical
// spelling per alias suffices.
var profiles = map[string]kindProfile{
	"Cluster": {
		readyAliases: []string{"Ready"},
		pending:      "Provisioning",
	},
	"ROSACluster": {
		readyAliases: []string{"Ready", "ROSAClusterReady"},
		pending:      "Provisioning",
	},
	"ROSAControlPlane": {
		readyAliases: []string{"Ready", "ROSAControlPlaneReady"},
		pending:      "Provisioning",
	},
	"ROSANetwork": {
		readyAliases: []string{"ROSANetworkReady", "Ready"},
		pending:      "Configuring",
	},
	"ROSARoleConfig": {
		readyAliases: []string{"ROSARoleConfigReady", "Ready"},
		pending:      "Configuring",
	},
}

var defaultProfile = kindProfile{
	readyAliases: []string{"Ready"},
	pending:      "Unknown",
}

func profileFor(kind string) kindProfile {
	if p, ok := profiles[kind]; ok {
		return p
	}
	return defaultProfile
}

// ResolveStatus derives the display status for a resource. A true
// status.ready field wins outright; anything else, including an
// explicit false, falls through to the kind's ready alias conditions.
// The result is always either "Ready" or the kind's pending label.
func ResolveStatus(kind string, ready *bool, conds []Condition) string {
	if ready != nil && *ready {
		return "Ready"
	}

	p := profileFor(kind)
	for _, alias := range p.readyAliases {
		if c, ok := findCondition(conds, alias); ok && c.Status == ConditionTrue {
			return "Ready"
		}
	}
	return p.pending
}

func findCondition(conds []Condition, condType string) (Condition, bool) {
	for _, c := range conds {
		if strings.EqualFold(c.Type, condType) {
			return c, true
		}
	}
	return Condition{}, false
}

// FormatAge renders an elapsed duration the way kubectl does, keeping
// the two most significant units: "1d2h", "2h5m", "5m30s", "30s".
func FormatAge(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d.Seconds())
	days := total / 86400
	hours := (total % 86400) / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd%dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh%dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// Normalize builds the client-facing view of one resource.
func Normalize(kind, name, namespace, version string, createdAt time.Time, now time.Time, ready *bool, conds []Condition) Resource {
	age := ""
	if !createdAt.IsZero() {
		age = FormatAge(now.Sub(createdAt))
	}
	return Resource{
		Kind:      kind,
		Name:      name,
		Namespace: namespace,
		Version:   version,
		Age:       age,
		Status:    ResolveStatus(kind, ready, conds),
	}
}
