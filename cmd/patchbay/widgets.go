package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-patchbay/widget"
)

func newWidgetsCmd(_ *app) *cobra.Command {
	var params bool

	cmd := &cobra.Command{
		Use:   "widgets",
		Short: "List the node types a patch may use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg := widget.DefaultRegistry()

			for _, t := range reg.Types() {
				line := t
				if params {
					line = t + "\t" + describeSchema(reg.Schema(t))
				}

				if _, err := fmt.Fprintln(cmd.OutOrStdout(), line); err != nil {
					return err
				}
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&params, "params", false, "also list each type's parameters and their kinds")

	return cmd
}

func describeSchema(s widget.Schema) string {
	if len(s) == 0 {
		return "-"
	}

	fields := make([]string, 0, len(s))
	for _, name := range s.Names() {
		fields = append(fields, name+":"+s[name].String())
	}

	return strings.Join(fields, " ")
}
