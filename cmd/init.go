package cmd

import (
	"log"

	"github.com/josephlewis42/nyush/core/config"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var initDir string

// initCmd writes the default configuration
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default shell configuration.",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		logger := log.New(cmd.ErrOrStderr(), "", 0)

		_, err := config.Initialize(afero.NewOsFs(), initDir, logger)
		return err
	},
}

func init() {
	initCmd.Flags().StringVar(&initDir, "dir", ".", "directory to write config.yaml to")
	rootCmd.AddCommand(initCmd)
}
