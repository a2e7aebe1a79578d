package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// requiredVars are the credential fields automation cannot run without.
var requiredVars = []struct {
	Field       string
	Description string
}{
	{"OCP_HUB_API_URL", "OpenShift Hub API URL"},
	{"OCP_HUB_CLUSTER_USER", "OpenShift Hub Username"},
	{"OCP_HUB_CLUSTER_PASSWORD", "OpenShift Hub Password"},
	{"AWS_REGION", "AWS Region"},
	{"AWS_ACCESS_KEY_ID", "AWS Access Key ID"},
	{"AWS_SECRET_ACCESS_KEY", "AWS Secret Access Key"},
	{"OCM_CLIENT_ID", "OpenShift Cluster Manager Client ID"},
	{"OCM_CLIENT_SECRET", "OpenShift Cluster Manager Client Secret"},
}

// Field identifies one required credential entry.
type Field struct {
	Field       string `json:"field"`
	Description string `json:"description"`
}

// VarsStatus is the audit result of the workspace vars file.
type VarsStatus struct {
	Configured       bool    `json:"configured"`
	Status           string  `json:"status"`
	Message          string  `json:"message"`
	TotalRequired    int     `json:"total_required"`
	TotalConfigured  int     `json:"total_configured"`
	ConfiguredFields []Field `json:"configured_fields"`
	MissingFields    []Field `json:"missing_fields"`
	EmptyFields      []Field `json:"empty_fields"`
	Path             string  `json:"config_file_path"`
}

// Vars audit statuses.
const (
	VarsMissing = "missing"
	VarsInvalid = "invalid_yaml"
	VarsNone    = "not_configured"
	VarsPartial = "partially_configured"
	VarsFull    = "fully_configured"
)

// AuditVars inspects the vars file at relPath under the workspace root
// and classifies every required credential as configured, empty, or
// missing. A nonexistent or unparsable file is a status, not an error;
// only unexpected I/O failures return one.
func (c *Catalog) AuditVars(relPath string) (VarsStatus, error) {
	path := filepath.Join(c.root, relPath)
	status := VarsStatus{
		Path:          relPath,
		TotalRequired: len(requiredVars),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		status.Status = VarsMissing
		status.Message = fmt.Sprintf("%s not found", relPath)
		return status, nil
	}
	if err != nil {
		return status, fmt.Errorf("read vars file: %w", err)
	}

	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		status.Status = VarsInvalid
		status.Message = fmt.Sprintf("Invalid YAML in %s: %v", relPath, err)
		return status, nil
	}

	for _, rv := range requiredVars {
		f := Field{Field: rv.Field, Description: rv.Description}
		raw, present := values[rv.Field]
		switch {
		case !present:
			status.MissingFields = append(status.MissingFields, f)
		case raw == nil || strings.TrimSpace(fmt.Sprint(raw)) == "":
			status.EmptyFields = append(status.EmptyFields, f)
		default:
			status.ConfiguredFields = append(status.ConfiguredFields, f)
		}
	}

	status.TotalConfigured = len(status.ConfiguredFields)
	classifyVars(&status)
	return status, nil
}

// Vars returns the scalar values of the vars file at relPath keyed by
// variable name. Missing file yields an empty map.
func (c *Catalog) Vars(relPath string) (map[string]string, error) {
	data, err := os.ReadFile(filepath.Join(c.root, relPath))
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read vars file: %w", err)
	}

	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse vars file: %w", err)
	}

	out := make(map[string]string, len(values))
	for k, v := range values {
		if v == nil {
			continue
		}
		out[k] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out, nil
}

func classifyVars(status *VarsStatus) {
	switch {
	case status.TotalConfigured == status.TotalRequired:
		status.Configured = true
		status.Status = VarsFull
		status.Message = "All required credentials are configured"
	case status.TotalConfigured > 0:
		status.Status = VarsPartial
		status.Message = fmt.Sprintf("%d/%d credentials configured", status.TotalConfigured, status.TotalRequired)
	default:
		status.Status = VarsNone
		status.Message = "No credentials have been configured"
	}
}
