package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/hyperjump/reqmerge/internal/cli"
	"github.com/spf13/cobra"
)

var (
	extractRecursive bool
	extractOutput    string
)

var extractCmd = &cobra.Command{
	Use:   "extract <file|dir>...",
	Short: "Extract and merge requirements from documents",
	Long: `Extract runs one batch over the given files and directories, in the order
given (directories contribute their supported files in lexical order). The merged
result replaces the stored one; service annotations are kept.

Examples:
  reqmerge extract catalogue_1.0.pdf catalogue_2.0.docx
  reqmerge extract ./catalogues
  reqmerge extract --recursive=false ./catalogues --output json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().BoolVar(&extractRecursive, "recursive", true, "descend into subdirectories")
	extractCmd.Flags().StringVar(&extractOutput, "output", "text", "output format: text or json")
}

func runExtract(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(extractOutput)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.Indexer.IndexPaths(ctx, args, extractRecursive)
	if err != nil {
		return err
	}
	return cli.WriteSummary(cmd.OutOrStdout(), summary, format)
}
