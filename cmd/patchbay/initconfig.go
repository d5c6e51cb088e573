package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-patchbay/internal/config"
)

func newInitConfigCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "Write the default configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "patchbay.yaml"
			if len(args) == 1 {
				path = args[0]
			}

			if !force {
				_, err := os.Stat(path)
				if err == nil {
					return fmt.Errorf("%s exists, use --force to replace it", path)
				}

				if !errors.Is(err, fs.ErrNotExist) {
					return err
				}
			}

			err := config.WriteDefault(path)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)

			return err
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "replace an existing file")

	return cmd
}
