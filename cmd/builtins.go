package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/josephlewis42/nyush/core"
	"github.com/spf13/cobra"
)

// builtinsCmd lists the commands run inside the shell
var builtinsCmd = &cobra.Command{
	Use:   "builtins",
	Short: "Show the shell builtin commands.",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 8, 8, 2, ' ', 0)
		defer tw.Flush()

		for _, name := range core.BuiltinNames() {
			builtin := core.AllBuiltins[name]
			fmt.Fprintf(tw, "%s\t%s\n", builtin.Usage, builtin.Short)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(builtinsCmd)
}
