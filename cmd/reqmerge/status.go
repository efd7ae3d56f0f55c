package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hyperjump/reqmerge/internal/cli"
	"github.com/hyperjump/reqmerge/internal/models"
	"github.com/hyperjump/reqmerge/internal/storage"
	"github.com/spf13/cobra"
)

var (
	statusOutput    string
	statusServerURL string
)

// statusResponse is the shape of GET /api/v1/status.
type statusResponse struct {
	Requirements     int64                  `json:"requirements"`
	Labels           int64                  `json:"labels"`
	KeywordIndexSize uint64                 `json:"keyword_index_size"`
	LastRun          *models.Run            `json:"last_run,omitempty"`
	DiskUsageBytes   *int64                 `json:"disk_usage_bytes,omitempty"`
	Config           map[string]interface{} `json:"config,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what is stored and where",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVar(&statusOutput, "output", "text", "output format: text or json")
	statusCmd.Flags().StringVar(&statusServerURL, "server", "", "ask a running server instead of the local database")
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(statusOutput)
	if err != nil {
		return err
	}
	var status *statusResponse
	if statusServerURL != "" {
		status, err = statusViaHTTP(statusServerURL)
	} else {
		status, err = statusLocal(cmd)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == cli.OutputJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}
	fmt.Fprintf(out, "Requirements:       %d\n", status.Requirements)
	fmt.Fprintf(out, "Cadence labels:     %d\n", status.Labels)
	fmt.Fprintf(out, "Keyword index size: %d\n", status.KeywordIndexSize)
	if status.LastRun != nil {
		fmt.Fprintf(out, "Last run:           %s (%d documents, %d failed, %s)\n",
			status.LastRun.FinishedAt.Local().Format("2006-01-02 15:04:05"),
			status.LastRun.Documents, status.LastRun.Failed, status.LastRun.Duration())
	} else {
		fmt.Fprintln(out, "Last run:           never")
	}
	if status.DiskUsageBytes != nil {
		fmt.Fprintf(out, "Disk usage:         %s\n", formatBytes(*status.DiskUsageBytes))
	}
	for _, key := range []string{"database_path", "bleve_index_path"} {
		if v, ok := status.Config[key]; ok && v != "" {
			fmt.Fprintf(out, "%-20s%v\n", strings.ReplaceAll(key, "_", " ")+":", v)
		}
	}
	return nil
}

func statusLocal(cmd *cobra.Command) (*statusResponse, error) {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	status := &statusResponse{Config: map[string]interface{}{
		"database_path":    a.Config.Storage.DatabasePath,
		"bleve_index_path": a.Config.Storage.BleveIndexPath,
	}}
	if status.Requirements, err = a.Storage.CountRequirements(ctx); err != nil {
		return nil, err
	}
	if status.Labels, err = a.Storage.CountLabels(ctx); err != nil {
		return nil, err
	}
	if status.KeywordIndexSize, err = a.Engine.IndexedCount(); err != nil {
		return nil, err
	}
	if status.LastRun, err = a.Storage.LastRun(ctx); err != nil {
		return nil, err
	}
	paths := storage.DatabaseFiles(a.Config.Storage.DatabasePath)
	if a.Config.Storage.BleveIndexPath != "" {
		paths = append(paths, a.Config.Storage.BleveIndexPath)
	}
	if n, err := storage.DiskUsageBytes(paths...); err == nil {
		status.DiskUsageBytes = &n
	}
	return status, nil
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(strings.TrimRight(serverURL, "/") + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &status, nil
}

// formatBytes renders n with a binary unit suffix.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
