package cluster

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/provisionworks/orchard/pkg/conditions"
)

// resourceNames maps display kinds onto the names the CLI expects.
var resourceNames = map[string]string{
	"Cluster":          "cluster",
	"ROSACluster":      "rosacluster",
	"ROSAControlPlane": "rosacontrolplane",
	"ROSANetwork":      "rosanetwork",
	"ROSARoleConfig":   "rosaroleconfig",
	"MachinePool":      "machinepool",
}

// DefaultResourceKinds are the kinds surveyed when a request does not
// narrow the set.
var DefaultResourceKinds = []string{
	"Cluster", "ROSACluster", "ROSAControlPlane", "ROSANetwork", "ROSARoleConfig",
}

type resourceList struct {
	Items []resourceItem `json:"items"`
}

// readyFlag tolerates the spellings controllers emit for status.ready:
// a JSON bool or the strings "true"/"false". Anything else reads as
// unset instead of failing the kind survey.
type readyFlag struct {
	val *bool
}

func (r *readyFlag) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		r.val = &b
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v := strings.EqualFold(s, "true")
		r.val = &v
	}
	return nil
}

type resourceItem struct {
	Metadata struct {
		Name              string    `json:"name"`
		Namespace         string    `json:"namespace"`
		CreationTimestamp time.Time `json:"creationTimestamp"`
	} `json:"metadata"`
	Spec struct {
		Version string `json:"version"`
	} `json:"spec"`
	Status struct {
		Ready      readyFlag              `json:"ready"`
		Version    string                 `json:"version"`
		Conditions []conditions.Condition `json:"conditions"`
	} `json:"status"`
}

// Resources fetches each requested kind in namespace and returns the
// normalized view. A kind the cluster does not know is skipped with a
// log line rather than failing the whole survey.
func (c *Client) Resources(ctx context.Context, kinds []string, namespace string) ([]conditions.Resource, error) {
	if len(kinds) == 0 {
		kinds = DefaultResourceKinds
	}
	now := time.Now().UTC()

	var out []conditions.Resource
	for _, kind := range kinds {
		name, ok := resourceNames[kind]
		if !ok {
			name = strings.ToLower(kind)
		}

		fetchCtx, cancel := context.WithTimeout(ctx, c.kubectlTimeout)
		stdout, stderr, err := c.runner.Run(fetchCtx, nil, "kubectl", "get", name,
			"-n", namespace, "-o", "json")
		cancel()
		if err != nil {
			cerr := classify(fetchCtx, "kubectl", "get "+name, stderr, err)
			if IsToolNotInstalled(cerr) || IsTimedOut(cerr) {
				return nil, cerr
			}
			// Unregistered CRDs are expected on partially set up hubs.
			c.logger.Debug("resource kind unavailable",
				zap.String("kind", kind), zap.Error(cerr))
			continue
		}

		var list resourceList
		if err := json.Unmarshal(stdout, &list); err != nil {
			return nil, fmt.Errorf("decode %s list: %w", name, err)
		}

		for _, item := range list.Items {
			version := item.Status.Version
			if version == "" {
				version = item.Spec.Version
			}
			out = append(out, conditions.Normalize(
				kind,
				item.Metadata.Name,
				item.Metadata.Namespace,
				version,
				item.Metadata.CreationTimestamp,
				now,
				item.Status.Ready.val,
				item.Status.Conditions,
			))
		}
	}
	return out, nil
}
