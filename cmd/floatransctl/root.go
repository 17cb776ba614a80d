package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"floatrans/internal/config"
)

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	endpoint   string
	verbose    bool
}

// resolvedConfigPath returns --config, or the per-user default.
func (o *globalOptions) resolvedConfigPath() string {
	if p := strings.TrimSpace(o.configPath); p != "" {
		return p
	}
	return defaultConfigPathFn()
}

// loadConfig reads the config file. Unreadable files fall back to
// defaults with a warning, as the app does.
func (o *globalOptions) loadConfig() (config.Config, string) {
	path := o.resolvedConfigPath()
	cfg, err := config.Load(path)
	if err != nil {
		slog.Warn("[WARN-CONFIG] using default config", "path", path, "error", err)
	}
	return cfg, path
}

var defaultConfigPathFn = config.DefaultPath

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "floatransctl",
		Short: "Control the floatrans translator window",
		Long: `floatransctl talks to a running floatrans window (show, inject),
runs one-shot translations with the configured engine, and edits the
persisted keyboard shortcuts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default is the per-user floatrans/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.endpoint, "endpoint", "", "IPC endpoint of the running app (default per-user pipe or socket)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newShowCmd(opts))
	rootCmd.AddCommand(newInjectCmd(opts))
	rootCmd.AddCommand(newTranslateCmd(opts))
	rootCmd.AddCommand(newShortcutsCmd(opts))

	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)
	return rootCmd
}
