package main

import (
	"github.com/hyperjump/reqmerge/internal/cli"
	"github.com/spf13/cobra"
)

var showOutput string

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one requirement with its full body per cadence",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cli.ParseOutputFormat(showOutput)
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		r, err := a.Engine.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		labels, err := a.Engine.Labels(cmd.Context())
		if err != nil {
			return err
		}
		return cli.WriteRequirement(cmd.OutOrStdout(), r, labels, format)
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().StringVar(&showOutput, "output", "text", "output format: text or json")
}
