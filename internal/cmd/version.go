package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var versionJSON bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE:  runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "emit JSON")
}

func runVersion(cmd *cobra.Command, args []string) error {
	if versionJSON {
		out, err := json.MarshalIndent(map[string]string{
			"version":    versionInfo.Version,
			"commit":     versionInfo.Commit,
			"build_date": versionInfo.BuildDate,
			"go_version": runtime.Version(),
			"platform":   runtime.GOOS + "/" + runtime.GOARCH,
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "orchard %s (commit %s, built %s, %s %s/%s)\n",
		versionInfo.Version, versionInfo.Commit, versionInfo.BuildDate,
		runtime.Version(), runtime.GOOS, runtime.GOARCH)
	return nil
}
