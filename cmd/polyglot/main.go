package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/fpt/polyglot/internal/gateway"
	"github.com/fpt/polyglot/pkg/logger"
)

// rootOptions holds flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
}

func (o *rootOptions) path() string {
	if o.configPath != "" {
		return o.configPath
	}
	return gateway.DefaultConfigPath()
}

// logger prefers the --log-level flag over the configured level.
func (o *rootOptions) logger(configured string, console io.Writer) *logger.Logger {
	level := logger.LogLevel(configured)
	if o.logLevel != "" {
		level = logger.LogLevel(o.logLevel)
	}
	if level == "" {
		level = logger.LogLevelInfo
	}
	logger.SetGlobalLoggerWithConsoleWriter(level, console)
	return logger.Default
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "polyglot",
		Short:         "Relay Discord channels across English, Spanish and Portuguese",
		Example:       "polyglot run --config ~/.polyglot/config.yaml",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to config file (default: $HOME/.polyglot/config.json)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newRunCommand(opts),
		newTranslateCommand(opts),
		newTryCommand(opts),
		newStatsCommand(),
	)
	return cmd
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		cmd.PrintErrln("Error:", err)
		os.Exit(1)
	}
}
