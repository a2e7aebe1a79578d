package handlers

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/provisionworks/orchard/pkg/applier"
	"github.com/provisionworks/orchard/pkg/catalog"
	"github.com/provisionworks/orchard/pkg/cluster"
	"github.com/provisionworks/orchard/pkg/jobstore"
	"github.com/provisionworks/orchard/pkg/preflight"
	"github.com/provisionworks/orchard/pkg/runner"
	"github.com/provisionworks/orchard/pkg/statuscache"
)

type cliResponse struct {
	stdout string
	stderr string
	err    error
}

// fakeCLI satisfies cluster.CommandRunner, keyed by "tool subcommand".
type fakeCLI struct {
	mu        sync.Mutex
	responses map[string]cliResponse
	calls     []string
	argv      []string
}

func newFakeCLI() *fakeCLI {
	return &fakeCLI{responses: make(map[string]cliResponse)}
}

func (f *fakeCLI) set(key string, resp cliResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[key] = resp
}

func (f *fakeCLI) Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, []byte, error) {
	key := name
	if len(args) > 0 {
		key = name + " " + args[0]
	}
	f.mu.Lock()
	f.calls = append(f.calls, key)
	f.argv = append(f.argv, strings.Join(append([]string{name}, args...), " "))
	resp := f.responses[key]
	f.mu.Unlock()
	return []byte(resp.stdout), []byte(resp.stderr), resp.err
}

func (f *fakeCLI) commandLines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.argv...)
}

func (f *fakeCLI) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == key {
			n++
		}
	}
	return n
}

// testWorkspace seeds a throwaway automation workspace.
func testWorkspace(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	for _, dir := range []string{"vars", "tasks", filepath.Join("roles", "network-check")} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0o755))
	}
	for _, name := range []string{
		"create_rosa_hcp_cluster.yaml",
		"delete_rosa_hcp_cluster.yaml",
		"acm21174_environment_setup.yaml",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("- hosts: localhost\n  tasks: []\n"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "vars", "vars.yml"), []byte("{}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "tasks", "simple.yml"), []byte("- debug:\n    msg: hi\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "tasks", "login_ocp.yml"), []byte("- debug:\n    msg: login\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "roles", "network-check", "main.yml"), []byte("{}\n"), 0o644))

	return root
}

func writeVars(t *testing.T, root, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(root, "vars", "user_vars.yml"), []byte(content), 0o644))
}

type fixture struct {
	handlers *Handlers
	store    *jobstore.Store
	runner   *runner.Runner
	catalog  *catalog.Catalog
	cli      *fakeCLI
	root     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	root := testWorkspace(t)
	store := jobstore.New()
	run := runner.New(store)
	cli := newFakeCLI()
	client := cluster.NewClient(cluster.WithRunner(cli))
	cache := statuscache.New()
	cat := catalog.New(root)

	h := New(Deps{
		Store:   store,
		Runner:  run,
		Applier: applier.New(store, client),
		Cluster: client,
		Cache:   cache,
		Checker: preflight.NewChecker(cache),
		Catalog: cat,
	})
	h.wsPollInterval = 10 * time.Millisecond

	return &fixture{
		handlers: h,
		store:    store,
		runner:   run,
		catalog:  cat,
		cli:      cli,
		root:     root,
	}
}

// withURLParam injects a chi route parameter for direct handler calls.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// waitTerminal polls until the job leaves the running states.
func waitTerminal(t *testing.T, store *jobstore.Store, id string) jobstore.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, ok := store.Get(id)
		require.True(t, ok, "job %s disappeared", id)
		if job.Status.Terminal() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal state", id)
	return jobstore.Job{}
}
