package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func workspace(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	write := func(rel, content string) {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	write("create_rosa_hcp_cluster.yaml", "- hosts: localhost\n")
	write("delete_rosa_hcp_cluster.yaml", "- hosts: localhost\n")
	write("playbooks/network/acm21174_environment_setup.yaml", "- hosts: localhost\n")
	write("tasks/validate-mce.yml", "- debug: msg=ok\n")
	write("tasks/login_ocp.yml", "- debug: msg=login\n")
	write("roles/configure-capa-environment/tasks/main.yml", "- debug: msg=role\n")
	return root
}

func TestTemplates(t *testing.T) {
	c := New(t.TempDir())

	templates := c.Templates()
	require.Len(t, templates, 2)

	tpl, ok := c.Template("rosa-full-automation")
	require.True(t, ok)
	assert.Contains(t, tpl.Features, "role_automation")

	_, ok = c.Template("nope")
	assert.False(t, ok)
}

func TestPlaybookDiscovery(t *testing.T) {
	c := New(workspace(t))

	books, err := c.Playbooks()
	require.NoError(t, err)
	assert.Contains(t, books, "create_rosa_hcp_cluster.yaml")
	assert.Contains(t, books, "playbooks/network/acm21174_environment_setup.yaml")

	ok, err := c.HasPlaybook("delete_rosa_hcp_cluster.yaml")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.HasPlaybook("missing.yaml")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAuditVarsFullyConfigured(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "vars"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "vars", "user_vars.yml"), []byte(`
OCP_HUB_API_URL: https://api.hub:6443
OCP_HUB_CLUSTER_USER: kubeadmin
OCP_HUB_CLUSTER_PASSWORD: hunter2
AWS_REGION: us-east-1
AWS_ACCESS_KEY_ID: AKIA123
AWS_SECRET_ACCESS_KEY: abc123
OCM_CLIENT_ID: client
OCM_CLIENT_SECRET: secret
`), 0o644))

	status, err := New(root).AuditVars("vars/user_vars.yml")
	require.NoError(t, err)
	assert.True(t, status.Configured)
	assert.Equal(t, VarsFull, status.Status)
	assert.Equal(t, 8, status.TotalConfigured)
}

func TestAuditVarsPartial(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "vars"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "vars", "user_vars.yml"), []byte(`
OCP_HUB_API_URL: https://api.hub:6443
OCP_HUB_CLUSTER_USER: ""
AWS_REGION: us-east-1
`), 0o644))

	status, err := New(root).AuditVars("vars/user_vars.yml")
	require.NoError(t, err)
	assert.False(t, status.Configured)
	assert.Equal(t, VarsPartial, status.Status)
	assert.Equal(t, 2, status.TotalConfigured)
	assert.Len(t, status.EmptyFields, 1)
	assert.Len(t, status.MissingFields, 5)
}

func TestAuditVarsMissingFile(t *testing.T) {
	status, err := New(t.TempDir()).AuditVars("vars/user_vars.yml")
	require.NoError(t, err)
	assert.Equal(t, VarsMissing, status.Status)
	assert.False(t, status.Configured)
}

func TestAuditVarsInvalidYAML(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "vars"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "vars", "user_vars.yml"), []byte("a: [b\n"), 0o644))

	status, err := New(root).AuditVars("vars/user_vars.yml")
	require.NoError(t, err)
	assert.Equal(t, VarsInvalid, status.Status)
}
