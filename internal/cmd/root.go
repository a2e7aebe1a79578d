// Package cmd implements the orchard CLI.
package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

// versionInfo is injected at build time via SetVersionInfo.
var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "HEAD",
	BuildDate: "unknown",
}

// SetVersionInfo records the build metadata shown by version commands.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "orchard",
	Short: "Cluster automation orchestration service",
	Long: `orchard is the backend for managed-cluster automation: it runs
playbooks, tasks, roles and declarative applies as tracked background
jobs and serves their live status over HTTP and WebSockets.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./orchard.yaml)")
}

// configOverrides turns global flags into loader overrides.
func configOverrides() map[string]any {
	overrides := map[string]any{}
	if cfgFile != "" {
		overrides["config"] = cfgFile
	}
	return overrides
}

// Execute runs the CLI.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
