package cmd

import (
	"errors"
	"io/fs"
	"log"
	"os"

	"github.com/josephlewis42/nyush/core"
	"github.com/josephlewis42/nyush/core/config"
	"github.com/josephlewis42/nyush/core/logger"
	"github.com/josephlewis42/nyush/core/metrics"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var cfgPath string

// loadConfig reads the configuration named by --config, falling back to the
// built-in defaults when the flag isn't set.
func loadConfig(diag *log.Logger) (*config.Configuration, error) {
	if cfgPath == "" {
		return config.Default(), nil
	}

	configuration, err := config.Load(afero.NewOsFs(), cfgPath)
	if errors.Is(err, fs.ErrNotExist) {
		diag.Println("Couldn't load config: did you run init?")
	}

	return configuration, err
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "nyush",
	Short: "A job control shell",
	Long: `nyush runs pipelines of programs as process groups with foreground and
background jobs, suspension and resumption.`,
	Args: cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		diag := log.New(cmd.ErrOrStderr(), "[nyush] ", 0)
		cfg, err := loadConfig(diag)
		if err != nil {
			return err
		}

		events := logger.NewNopLogger()
		if cfg.EventLog != "" {
			logFd, err := cfg.OpenEventLog()
			if err != nil {
				return err
			}
			defer logFd.Close()
			events = logger.NewJsonLinesLogRecorder(logFd)
		}

		sh, err := core.NewShell(core.Options{
			Stdin:   os.Stdin,
			Stdout:  os.Stdout,
			Stderr:  os.Stderr,
			Config:  cfg,
			Events:  events,
			Metrics: metrics.NewCollector(),
		})
		if err != nil {
			return err
		}

		runErr := sh.Run()
		if err := sh.Close(); err != nil {
			diag.Printf("Shutting down: %v\n", err)
		}
		return runErr
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config path, built-in defaults are used if empty")
}
