package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/regconv/internal/codec"
	"github.com/JonMunkholm/regconv/internal/config"
	"github.com/JonMunkholm/regconv/internal/registry"
)

func (a *app) schemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the record layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			policy, err := registry.ParsePolicy(a.cfg.Convert.RequiredFields)
			if err != nil {
				return err
			}
			return printSchema(cmd, policy, a.cfg.Convert)
		},
	}
}

func printSchema(cmd *cobra.Command, policy registry.Policy, cfg config.ConvertConfig) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "POS\tFIELD\tRULE\tREQUIRED")
	for _, f := range registry.Fields() {
		required := ""
		if policy.Requires(f) {
			required = "yes"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", int(f), f, f.Rule(), required)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\ninput: %s, %d header rows\n", cfg.InputEncoding, cfg.SkipRows)
	fmt.Fprintf(out, "output: %s, quoting %s\n", cfg.OutputEncoding, cfg.Quoting)
	fmt.Fprintf(out, "encodings: %v\n", codec.Names())
	return nil
}
