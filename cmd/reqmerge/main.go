// Package main is the reqmerge CLI entry point.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperjump/reqmerge/internal/config"
	"github.com/spf13/cobra"
)

// version is set at build time via ldflags.
var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/reqmerge/config.yaml"
	localConfigName   = "reqmerge.yaml"
)

var (
	cfgFile string
	debug   bool
)

// rootCmd is the base command for the reqmerge CLI.
var rootCmd = &cobra.Command{
	Use:   "reqmerge",
	Short: "Merge requirement catalogues across release cadences",
	Long: `reqmerge extracts GUID-tagged requirements from a batch of documents (PDF, DOCX,
ODT, RTF, XLSX, text), tags each document with its release cadence, and merges
everything into one table: one row per requirement, one column per cadence.

The merged table is kept in a local database so reviewers can annotate the
owning service, search and filter it, and export it to a spreadsheet.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./"+localConfigName+", then "+defaultConfigPath+")")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config file. An explicit path must exist. Without one, it
// looks for reqmerge.yaml in the current directory, then the system default path,
// and falls back to built-in defaults when neither exists. Returns the config and the
// path that was actually loaded ("" for built-in defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, "", err
		}
		return cfg, path, nil
	}
	candidates := []string{defaultConfigPath}
	if cwd, err := os.Getwd(); err == nil {
		candidates = append([]string{filepath.Join(cwd, localConfigName)}, candidates...)
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err != nil {
			continue
		}
		cfg, err := config.Load(c)
		if err != nil {
			return nil, "", err
		}
		return cfg, c, nil
	}
	return config.Default(), "", nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
