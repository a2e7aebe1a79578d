package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/provisionworks/orchard/internal/config"
	"github.com/provisionworks/orchard/internal/observability"
	"github.com/provisionworks/orchard/internal/server"
	"github.com/provisionworks/orchard/internal/server/handlers"
	"github.com/provisionworks/orchard/pkg/applier"
	"github.com/provisionworks/orchard/pkg/catalog"
	"github.com/provisionworks/orchard/pkg/cluster"
	"github.com/provisionworks/orchard/pkg/events"
	"github.com/provisionworks/orchard/pkg/jobstore"
	"github.com/provisionworks/orchard/pkg/preflight"
	"github.com/provisionworks/orchard/pkg/runner"
	"github.com/provisionworks/orchard/pkg/statuscache"
)

var (
	serveHost      string
	servePort      int
	serveWorkspace string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the orchestration HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen host (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides config)")
	serveCmd.Flags().StringVar(&serveWorkspace, "workspace", "", "automation workspace root (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	overrides := configOverrides()
	if serveHost != "" {
		overrides["server.host"] = serveHost
	}
	if servePort != 0 {
		overrides["server.port"] = servePort
	}
	if serveWorkspace != "" {
		overrides["workspace.root"] = serveWorkspace
	}

	cfg, err := config.Load(ctx, overrides)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	storeOpts := []jobstore.Option{}
	var eventsFile *os.File
	if cfg.Events.File != "" {
		eventsFile, err = os.OpenFile(cfg.Events.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open events file: %w", err)
		}
		defer eventsFile.Close()
		storeOpts = append(storeOpts, jobstore.WithSink(events.NewJSONLWriter(eventsFile, logger)))
	}
	store := jobstore.New(storeOpts...)

	client := cluster.NewClient(cluster.WithLogger(logger))
	run := runner.New(store, runner.WithLogger(logger))
	apply := applier.New(store, client, applier.WithLogger(logger))
	cache := statuscache.New()
	cat := catalog.New(cfg.Workspace.Root)
	checker := preflight.NewChecker(cache)
	registerPreflightChecks(checker, client, cat, cfg)

	h := handlers.New(handlers.Deps{
		Store:    store,
		Runner:   run,
		Applier:  apply,
		Cluster:  client,
		Cache:    cache,
		Checker:  checker,
		Catalog:  cat,
		Logger:   logger,
		VarsFile: cfg.Workspace.VarsFile,
		AuthTTL:  cfg.Cache.AuthTTL,
		HubTTL:   cfg.Cache.HubTTL,
	})

	manager := handlers.InitHealthManager(versionInfo.Version)
	manager.RegisterChecker("workspace", workspaceHealthChecker{root: cfg.Workspace.Root})
	manager.RegisterChecker("jobstore", storeHealthChecker{store: store})

	limiter := rate.NewLimiter(rate.Limit(cfg.Limits.JobsPerSecond), cfg.Limits.JobsBurst)

	srv := server.New(cfg.Server.Host, cfg.Server.Port,
		server.WithHandlers(h),
		server.WithLogger(logger),
		server.WithVersion(versionInfo.Version),
		server.WithJobLimiter(limiter),
		server.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.IdleTimeout),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-sigCtx.Done():
	}

	logger.Info("shutting down", zap.Duration("grace", cfg.Server.ShutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}

	// Jobs are bounded by their own timeouts; wait so in-flight runs
	// record their terminal state before exit.
	run.Wait()
	apply.Wait()

	logger.Info("shutdown complete")
	return nil
}

// registerPreflightChecks wires the diagnostics endpoints to live
// probes of the CLI auth, hub connectivity, and workspace config.
func registerPreflightChecks(checker *preflight.Checker, client *cluster.Client, cat *catalog.Catalog, cfg *config.Config) {
	checker.Register(
		preflight.Check{
			ID:   preflight.CheckAuth,
			Name: "CLI authentication",
			TTL:  cfg.Cache.AuthTTL,
			Probe: func(ctx context.Context) (any, error) {
				return client.WhoAmI(ctx)
			},
			Interpret: func(value any, err error) preflight.Result {
				if err != nil {
					return preflight.Result{
						Outcome:    preflight.OutcomeFail,
						Message:    err.Error(),
						FixCommand: "rosa login --use-auth-code",
					}
				}
				return preflight.Result{Outcome: preflight.OutcomePass, Message: "CLI session is authenticated"}
			},
		},
		preflight.Check{
			ID:   preflight.CheckHub,
			Name: "Hub connection",
			TTL:  cfg.Cache.HubTTL,
			Probe: func(ctx context.Context) (any, error) {
				vars, err := cat.Vars(cfg.Workspace.VarsFile)
				if err != nil {
					return nil, err
				}
				creds := cluster.HubCredentials{
					APIURL:   vars["OCP_HUB_API_URL"],
					Username: vars["OCP_HUB_CLUSTER_USER"],
					Password: vars["OCP_HUB_CLUSTER_PASSWORD"],
				}
				if creds.APIURL == "" {
					return nil, errors.New("hub credentials are not configured")
				}
				return client.HubLogin(ctx, creds)
			},
			Interpret: func(value any, err error) preflight.Result {
				if err != nil {
					return preflight.Result{
						Outcome:    preflight.OutcomeFail,
						Message:    err.Error(),
						FixCommand: "edit " + cfg.Workspace.VarsFile,
					}
				}
				return preflight.Result{Outcome: preflight.OutcomePass, Message: "hub cluster is reachable"}
			},
		},
		preflight.Check{
			ID:   preflight.CheckConfig,
			Name: "Workspace configuration",
			TTL:  0,
			Probe: func(ctx context.Context) (any, error) {
				return cat.AuditVars(cfg.Workspace.VarsFile)
			},
			Interpret: func(value any, err error) preflight.Result {
				if err != nil {
					return preflight.Result{Outcome: preflight.OutcomeFail, Message: err.Error()}
				}
				status := value.(catalog.VarsStatus)
				if status.Configured {
					return preflight.Result{Outcome: preflight.OutcomePass, Message: status.Message}
				}
				return preflight.Result{
					Outcome:    preflight.OutcomeWarn,
					Message:    status.Message,
					FixCommand: "edit " + cfg.Workspace.VarsFile,
				}
			},
		},
	)
}

// workspaceHealthChecker verifies the automation workspace exists.
type workspaceHealthChecker struct {
	root string
}

func (c workspaceHealthChecker) CheckHealth(ctx context.Context) error {
	info, err := os.Stat(c.root)
	if err != nil {
		return fmt.Errorf("workspace root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("workspace root %s is not a directory", c.root)
	}
	return nil
}

// storeHealthChecker confirms the job registry is serving reads.
type storeHealthChecker struct {
	store *jobstore.Store
}

func (c storeHealthChecker) CheckHealth(ctx context.Context) error {
	_ = c.store.Len()
	return nil
}
