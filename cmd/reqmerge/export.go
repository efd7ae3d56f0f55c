package main

import (
	"fmt"
	"os"
	"time"

	"github.com/hyperjump/reqmerge/internal/export"
	"github.com/spf13/cobra"
)

var (
	exportLabels  []string
	exportService bool
	exportFormat  string
	exportOut     string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the merged requirements to a spreadsheet",
	Long: `Export writes the stored table with one column per selected cadence label.
Labels may be quoted ('1.0.0'); without --labels every known label is exported.

Examples:
  reqmerge export
  reqmerge export --labels 1.0,2.0 --service=false
  reqmerge export --format csv --out -`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringSliceVar(&exportLabels, "labels", nil, "cadence labels to include, in column order (default: all)")
	exportCmd.Flags().BoolVar(&exportService, "service", true, "include the service column (default from config)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "xlsx", "file format: xlsx or csv")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output path, or - for stdout (default: Requirements_Export_<timestamp> in the current directory)")
}

func runExport(cmd *cobra.Command, args []string) error {
	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	includeService := a.Config.Export.IncludeServiceOrDefault()
	if cmd.Flags().Changed("service") {
		includeService = exportService
	}
	labels, coll, err := a.Storage.LoadCollection(cmd.Context())
	if err != nil {
		return err
	}
	table := export.Project(coll, labels, export.Options{Labels: exportLabels, IncludeService: includeService})

	if exportOut == "-" {
		return export.Write(cmd.OutOrStdout(), format, table, a.Config.Export.SheetName)
	}
	path := exportOut
	if path == "" {
		path = export.Filename(time.Now(), string(format))
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := export.Write(f, format, table, a.Config.Export.SheetName); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d requirements to %s\n", len(table.Rows), path)
	return nil
}
