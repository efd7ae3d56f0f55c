package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/hyperjump/reqmerge/internal/cli"
	"github.com/hyperjump/reqmerge/internal/models"
	"github.com/spf13/cobra"
)

var (
	listLabel     string
	listSort      string
	listDesc      bool
	listLimit     int
	listFuzzy     bool
	listOutput    string
	listServerURL string
)

var listCmd = &cobra.Command{
	Use:   "list [term...]",
	Short: "List the merged requirements",
	Long: `List prints the stored requirements. A term matches the identifier, kind or
service (substring, any case) or a word in any body. Multi-word terms work with or
without quotes.

Examples:
  reqmerge list
  reqmerge list encrypt backups --label 2.0
  reqmerge list --sort service --desc --limit 20
  reqmerge list --fuzzy encrpyt
  reqmerge list --server http://localhost:8080 --output json`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVar(&listLabel, "label", "", "only requirements with a body for this cadence label")
	listCmd.Flags().StringVar(&listSort, "sort", "id", "sort field: id, kind or service")
	listCmd.Flags().BoolVar(&listDesc, "desc", false, "sort descending")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "maximum number of rows (0 = all)")
	listCmd.Flags().BoolVar(&listFuzzy, "fuzzy", false, "match body words within one typo")
	listCmd.Flags().StringVar(&listOutput, "output", "text", "output format: text or json")
	listCmd.Flags().StringVar(&listServerURL, "server", "", "query a running server instead of the local database")
}

// buildTerm joins all positional args with spaces so multi-word terms work the same
// with or without shell quoting.
func buildTerm(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func runList(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(listOutput)
	if err != nil {
		return err
	}
	query := &models.RequirementQuery{
		Term:       buildTerm(args),
		Label:      listLabel,
		SortBy:     models.SortField(strings.ToLower(listSort)),
		Descending: listDesc,
		Limit:      listLimit,
		Fuzzy:      listFuzzy,
	}
	if err := query.Validate(); err != nil {
		return err
	}

	var response *models.RequirementResponse
	if listServerURL != "" {
		// a running server holds the database and index open
		response, err = listViaHTTP(listServerURL, query)
	} else {
		response, err = listLocal(cmd.Context(), query)
	}
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}
	return cli.WriteRequirements(cmd.OutOrStdout(), response, format)
}

func listLocal(ctx context.Context, query *models.RequirementQuery) (*models.RequirementResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx)
	if err != nil {
		return nil, err
	}
	defer a.Close()
	return a.Engine.Search(ctx, query)
}

// listURL encodes query as the server's list endpoint URL.
func listURL(serverURL string, query *models.RequirementQuery) string {
	v := url.Values{}
	if query.Term != "" {
		v.Set("q", query.Term)
	}
	if query.Label != "" {
		v.Set("label", query.Label)
	}
	if query.SortBy != "" {
		v.Set("sort", string(query.SortBy))
	}
	if query.Descending {
		v.Set("desc", "true")
	}
	if query.Limit > 0 {
		v.Set("limit", strconv.Itoa(query.Limit))
	}
	if query.Fuzzy {
		v.Set("fuzzy", "true")
	}
	u := strings.TrimRight(serverURL, "/") + "/api/v1/requirements"
	if enc := v.Encode(); enc != "" {
		u += "?" + enc
	}
	return u
}

func listViaHTTP(serverURL string, query *models.RequirementQuery) (*models.RequirementResponse, error) {
	resp, err := http.Get(listURL(serverURL, query))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var response models.RequirementResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}
