package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-patchbay/internal/studio"
	"github.com/cwbudde/algo-patchbay/snapshot"
)

func newValidateCmd(a *app) *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "validate <snapshot>",
		Short: "Check that a saved patch loads",
		Long: `Decode a saved patch, build every node and run one reconciliation pass.

The exit status is non-zero when the document is malformed or names a node
type that does not exist. Unresolved and rejected edges are reported but do
not fail validation.

Example:
  patchbay validate patch.json
  patchbay validate patch.json --yaml > patch.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readSnapshot(args[0])
			if err != nil {
				return err
			}

			st := studio.New(a.studioOptions())
			defer func() { _ = st.Close() }()

			err = st.Load(doc)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			if asYAML {
				return snapshot.EncodeYAML(out, doc)
			}

			rep := st.Report()
			_, err = fmt.Fprintf(out, "%s: %d nodes, %d edges, %d connected, %d skipped, %d rejected\n",
				args[0], len(doc.Flow.Nodes), len(doc.Flow.Edges), rep.Connected, rep.Skipped, rep.Rejected)

			return err
		},
	}

	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print the validated document as YAML")

	return cmd
}
