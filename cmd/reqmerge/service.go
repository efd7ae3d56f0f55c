package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var serviceCmd = &cobra.Command{
	Use:   "service <id> <value...>",
	Short: "Set the service that owns a requirement",
	Long: `Service records the reviewer's service annotation for a requirement. The value
survives later extraction runs. An empty value ("") clears it.

Example:
  reqmerge service CYS-100 "Backup and Recovery"`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		value := strings.TrimSpace(strings.Join(args[1:], " "))
		r, err := a.Indexer.SetService(cmd.Context(), args[0], value)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s service: %q\n", r.ID, r.Service)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serviceCmd)
}
