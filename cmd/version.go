package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of virtuoso-ci",
		Long:  `All software has versions. This is virtuoso-ci's.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "virtuoso-ci version %s\n", cmd.Root().Version)
		},
	}
}
