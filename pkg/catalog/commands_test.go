package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestPlaybookCommand(t *testing.T) {
	root := workspace(t)
	c := New(root)

	cmd, err := c.PlaybookCommand(PlaybookRequest{
		Playbook:  "create_rosa_hcp_cluster.yaml",
		ExtraVars: map[string]string{"cluster_name": "dev", "aws_region": "us-east-1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "ansible-playbook", cmd.Argv[0])
	assert.Equal(t, filepath.Join(root, "create_rosa_hcp_cluster.yaml"), cmd.Argv[1])
	assert.Equal(t, root, cmd.Dir)

	joined := strings.Join(cmd.Argv, " ")
	// Sorted key order keeps argv stable.
	assert.Contains(t, joined, "-e aws_region=us-east-1 -e cluster_name=dev")
}

func TestPlaybookCommandMissingPlaybook(t *testing.T) {
	c := New(workspace(t))

	_, err := c.PlaybookCommand(PlaybookRequest{Playbook: "nope.yaml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestPlaybookCommandRejectsEscape(t *testing.T) {
	c := New(workspace(t))

	_, err := c.PlaybookCommand(PlaybookRequest{Playbook: "../../etc/passwd"})
	assert.ErrorIs(t, err, ErrNotInWorkspace)

	_, err = c.PlaybookCommand(PlaybookRequest{Playbook: "/etc/passwd"})
	assert.ErrorIs(t, err, ErrNotInWorkspace)
}

func TestTaskCommandWrapsHubLogin(t *testing.T) {
	root := workspace(t)
	c := New(root)

	cmd, err := c.TaskCommand(TaskRequest{TaskFile: "tasks/validate-mce.yml", Description: "Validate MCE"})
	require.NoError(t, err)
	require.NotNil(t, cmd.Cleanup)
	defer cmd.Cleanup()

	wrapper := cmd.Argv[1]
	data, err := os.ReadFile(wrapper)
	require.NoError(t, err)

	var plays []map[string]any
	require.NoError(t, yaml.Unmarshal(data, &plays))
	require.Len(t, plays, 1)

	tasks := plays[0]["tasks"].([]any)
	require.Len(t, tasks, 3, "hub login preamble precedes the task include")
	first := tasks[0].(map[string]any)
	assert.Equal(t, "Set hub credentials", first["name"])
	last := tasks[2].(map[string]any)
	assert.Equal(t, "tasks/validate-mce.yml", last["include_tasks"])

	assert.Contains(t, strings.Join(cmd.Argv, " "), "skip_ansible_runner=true")
}

func TestTaskCommandCleanupRemovesWrapper(t *testing.T) {
	c := New(workspace(t))

	cmd, err := c.TaskCommand(TaskRequest{TaskFile: "tasks/login_ocp.yml"})
	require.NoError(t, err)

	wrapper := cmd.Argv[1]
	_, statErr := os.Stat(wrapper)
	require.NoError(t, statErr)

	cmd.Cleanup()
	_, statErr = os.Stat(wrapper)
	assert.True(t, os.IsNotExist(statErr))
}

func TestTaskCommandMissingFile(t *testing.T) {
	c := New(workspace(t))

	_, err := c.TaskCommand(TaskRequest{TaskFile: "tasks/absent.yml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestRoleCommandWrapsRole(t *testing.T) {
	c := New(workspace(t))

	cmd, err := c.RoleCommand(RoleRequest{RoleName: "configure-capa-environment"})
	require.NoError(t, err)
	defer cmd.Cleanup()

	data, err := os.ReadFile(cmd.Argv[1])
	require.NoError(t, err)

	var plays []map[string]any
	require.NoError(t, yaml.Unmarshal(data, &plays))
	tasks := plays[0]["tasks"].([]any)
	require.Len(t, tasks, 3, "hub login preamble precedes the role include")

	roleTask := tasks[2].(map[string]any)
	includeRole := roleTask["include_role"].(map[string]any)
	assert.Equal(t, "configure-capa-environment", includeRole["name"])
}

func TestRoleCommandUnknownRole(t *testing.T) {
	c := New(workspace(t))

	_, err := c.RoleCommand(RoleRequest{RoleName: "absent-role"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
