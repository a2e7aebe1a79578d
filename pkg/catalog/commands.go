package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Command is a fully resolved automation invocation ready for the job
// runner.
type Command struct {
	// Argv is the command line; Argv[0] is the binary.
	Argv []string

	// Dir is the working directory (the workspace root).
	Dir string

	// Env entries supplement the ambient environment.
	Env []string

	// Cleanup removes any wrapper files generated for this command.
	// May be nil.
	Cleanup func()
}

// TaskRequest runs a single task file through a generated wrapper
// playbook.
type TaskRequest struct {
	TaskFile    string
	Description string
	ExtraVars   map[string]string
}

// RoleRequest runs one role through a generated wrapper playbook.
type RoleRequest struct {
	RoleName    string
	Description string
	ExtraVars   map[string]string
}

// PlaybookRequest runs an existing playbook from the workspace.
type PlaybookRequest struct {
	Playbook  string
	ExtraVars map[string]string
}

// hubLoginTasks are the task files that must authenticate against the
// hub before running.
var hubLoginTasks = []string{
	"validate-capa-environment",
	"validate-mce",
	"enable_capi_capa",
	"get_capi_capa_status",
	"get_mce_component_status",
}

// hubLoginRoles are the roles that must authenticate against the hub
// before running.
var hubLoginRoles = []string{
	"configure-capa-environment",
}

// ErrNotInWorkspace rejects paths that escape the workspace root.
var ErrNotInWorkspace = errors.New("path escapes the workspace")

func (c *Catalog) resolve(rel string) (string, error) {
	clean := filepath.Clean(rel)
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("%q: %w", rel, ErrNotInWorkspace)
	}
	return filepath.Join(c.root, clean), nil
}

// TaskCommand validates the task file and builds its invocation. The
// wrapper playbook is written into the workspace so relative includes
// resolve; Cleanup removes it.
func (c *Catalog) TaskCommand(req TaskRequest) (Command, error) {
	if req.TaskFile == "" {
		return Command{}, fmt.Errorf("task_file is required")
	}
	path, err := c.resolve(req.TaskFile)
	if err != nil {
		return Command{}, err
	}
	if _, err := os.Stat(path); err != nil {
		return Command{}, fmt.Errorf("task file not found: %s: %w", req.TaskFile, os.ErrNotExist)
	}

	desc := req.Description
	if desc == "" {
		desc = "Running automation task"
	}

	var tasks []map[string]any
	if matchesAny(req.TaskFile, hubLoginTasks) {
		tasks = append(tasks, hubLoginPreamble()...)
	}
	tasks = append(tasks, map[string]any{
		"name":          "Include task file",
		"include_tasks": req.TaskFile,
	})

	wrapper, cleanup, err := c.writeWrapper(fmt.Sprintf("Run task: %s", desc), tasks, nil)
	if err != nil {
		return Command{}, err
	}

	argv := []string{
		"ansible-playbook", wrapper,
		"-i", "localhost,",
		"-e", "skip_ansible_runner=true",
		"-e", fmt.Sprintf("AUTOMATION_PATH=%s", c.root),
		"-v",
	}
	argv = appendExtraVars(argv, req.ExtraVars)

	return Command{Argv: argv, Dir: c.root, Cleanup: cleanup}, nil
}

// RoleCommand validates the role and builds its invocation through a
// wrapper playbook.
func (c *Catalog) RoleCommand(req RoleRequest) (Command, error) {
	if req.RoleName == "" {
		return Command{}, fmt.Errorf("role_name is required")
	}
	path, err := c.resolve(filepath.Join("roles", req.RoleName))
	if err != nil {
		return Command{}, err
	}
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		return Command{}, fmt.Errorf("role not found: %s: %w", req.RoleName, os.ErrNotExist)
	}

	var tasks []map[string]any
	if matchesAny(req.RoleName, hubLoginRoles) {
		tasks = append(tasks, hubLoginPreamble()...)
	}
	tasks = append(tasks, map[string]any{
		"name":         fmt.Sprintf("Run role %s", req.RoleName),
		"include_role": map[string]any{"name": req.RoleName},
		"vars": map[string]any{
			"ocm_client_id":     "{{ OCM_CLIENT_ID }}",
			"ocm_client_secret": "{{ OCM_CLIENT_SECRET }}",
		},
	})

	wrapper, cleanup, err := c.writeWrapper(fmt.Sprintf("Run %s role", req.RoleName), tasks, nil)
	if err != nil {
		return Command{}, err
	}

	argv := []string{
		"ansible-playbook", wrapper,
		"-i", "localhost,",
		"-e", "skip_ansible_runner=true",
		"-v",
	}
	argv = appendExtraVars(argv, req.ExtraVars)

	return Command{Argv: argv, Dir: c.root, Cleanup: cleanup}, nil
}

// PlaybookCommand validates the playbook path and builds its
// invocation. No wrapper is needed; the playbook runs as-is.
func (c *Catalog) PlaybookCommand(req PlaybookRequest) (Command, error) {
	if req.Playbook == "" {
		return Command{}, fmt.Errorf("playbook is required")
	}
	path, err := c.resolve(req.Playbook)
	if err != nil {
		return Command{}, err
	}
	if _, err := os.Stat(path); err != nil {
		return Command{}, fmt.Errorf("playbook not found: %s: %w", req.Playbook, os.ErrNotExist)
	}

	argv := []string{"ansible-playbook", path, "-v"}
	argv = appendExtraVars(argv, req.ExtraVars)

	env := []string{}
	if os.Getenv("KUBECONFIG") == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			env = append(env, "KUBECONFIG="+filepath.Join(home, ".kube", "config"))
		}
	}

	return Command{Argv: argv, Dir: c.root, Env: env}, nil
}

// hubLoginPreamble yields the tasks that authenticate the play against
// the hub cluster before the real work starts.
func hubLoginPreamble() []map[string]any {
	return []map[string]any{
		{
			"name": "Set hub credentials",
			"set_fact": map[string]any{
				"ocp_user":     "{{ OCP_HUB_CLUSTER_USER }}",
				"ocp_password": "{{ OCP_HUB_CLUSTER_PASSWORD }}",
				"api_url":      "{{ OCP_HUB_API_URL }}",
			},
		},
		{
			"name":          "Login to hub",
			"include_tasks": "tasks/login_ocp.yml",
		},
	}
}

// writeWrapper emits a single-play wrapper playbook into the workspace
// root and returns its path with a cleanup func.
func (c *Catalog) writeWrapper(name string, tasks []map[string]any, extraVarsFiles []string) (string, func(), error) {
	varsFiles := append([]string{"vars/vars.yml", "vars/user_vars.yml"}, extraVarsFiles...)
	play := []map[string]any{{
		"name":         name,
		"hosts":        "localhost",
		"connection":   "local",
		"gather_facts": false,
		"vars_files":   varsFiles,
		"tasks":        tasks,
	}}

	data, err := yaml.Marshal(play)
	if err != nil {
		return "", nil, fmt.Errorf("marshal wrapper playbook: %w", err)
	}

	f, err := os.CreateTemp(c.root, "orchard-wrapper-*.yml")
	if err != nil {
		return "", nil, fmt.Errorf("create wrapper playbook: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", nil, fmt.Errorf("write wrapper playbook: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", nil, fmt.Errorf("close wrapper playbook: %w", err)
	}

	path := f.Name()
	return path, func() { os.Remove(path) }, nil
}

// appendExtraVars adds -e key=value pairs in sorted key order so the
// produced argv is stable.
func appendExtraVars(argv []string, vars map[string]string) []string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		argv = append(argv, "-e", fmt.Sprintf("%s=%s", k, vars[k]))
	}
	return argv
}

func matchesAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
