package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/provisionworks/orchard/pkg/jobstore"
)

var (
	jobsServer string
	jobsJSON   bool
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect jobs on a running server",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs, newest first",
	RunE:  runJobsList,
}

var jobsStatusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show one job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsStatus,
}

var jobsLogsCmd = &cobra.Command{
	Use:   "logs <job-id>",
	Short: "Print a job's captured output",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsLogs,
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsStatusCmd)
	jobsCmd.AddCommand(jobsLogsCmd)

	jobsCmd.PersistentFlags().StringVar(&jobsServer, "server", "http://localhost:8080", "server base URL")
	jobsCmd.PersistentFlags().BoolVar(&jobsJSON, "json", false, "emit raw JSON")
}

func apiGet(path string, out any) error {
	base, err := url.Parse(jobsServer)
	if err != nil {
		return fmt.Errorf("invalid --server value: %w", err)
	}
	ref, err := url.Parse(path)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Get(base.ResolveReference(ref).String())
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %s: %s", resp.Status, body)
	}

	if raw, ok := out.(*[]byte); ok {
		*raw = body
		return nil
	}
	return json.Unmarshal(body, out)
}

func runJobsList(cmd *cobra.Command, args []string) error {
	if jobsJSON {
		var raw []byte
		if err := apiGet("/api/jobs", &raw); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(raw))
		return nil
	}

	var body struct {
		Jobs []jobstore.Job `json:"jobs"`
	}
	if err := apiGet("/api/jobs", &body); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tSTATUS\tPROGRESS\tMESSAGE")
	for _, job := range body.Jobs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d%%\t%s\n",
			job.ID, job.Kind, job.Status, job.Progress, job.Message)
	}
	return tw.Flush()
}

func runJobsStatus(cmd *cobra.Command, args []string) error {
	path := "/api/jobs/" + url.PathEscape(args[0])

	if jobsJSON {
		var raw []byte
		if err := apiGet(path, &raw); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(raw))
		return nil
	}

	var job jobstore.Job
	if err := apiGet(path, &job); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:       %s\n", job.ID)
	fmt.Fprintf(out, "Kind:     %s\n", job.Kind)
	fmt.Fprintf(out, "Status:   %s\n", job.Status)
	fmt.Fprintf(out, "Progress: %d%%\n", job.Progress)
	fmt.Fprintf(out, "Message:  %s\n", job.Message)
	fmt.Fprintf(out, "Started:  %s\n", job.StartedAt.Format(time.RFC3339))
	if job.CompletedAt != nil {
		fmt.Fprintf(out, "Finished: %s\n", job.CompletedAt.Format(time.RFC3339))
		fmt.Fprintf(out, "Code:     %d\n", job.ReturnCode)
	}
	return nil
}

func runJobsLogs(cmd *cobra.Command, args []string) error {
	path := "/api/jobs/" + url.PathEscape(args[0]) + "/logs"

	if jobsJSON {
		var raw []byte
		if err := apiGet(path, &raw); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(raw))
		return nil
	}

	var body struct {
		Logs []string `json:"logs"`
	}
	if err := apiGet(path, &body); err != nil {
		return err
	}
	for _, line := range body.Logs {
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	return nil
}
