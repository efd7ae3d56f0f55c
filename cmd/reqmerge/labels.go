package main

import (
	"github.com/hyperjump/reqmerge/internal/cli"
	"github.com/spf13/cobra"
)

var labelsOutput string

var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "List the cadence labels of the stored result in input order",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cli.ParseOutputFormat(labelsOutput)
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		labels, err := a.Engine.Labels(cmd.Context())
		if err != nil {
			return err
		}
		return cli.WriteLabels(cmd.OutOrStdout(), labels, format)
	},
}

func init() {
	rootCmd.AddCommand(labelsCmd)
	labelsCmd.Flags().StringVar(&labelsOutput, "output", "text", "output format: text or json")
}
