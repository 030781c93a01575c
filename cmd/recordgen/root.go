package main

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BC-Softworks/record-generator/internal/config"
	"github.com/BC-Softworks/record-generator/internal/logger"
)

var (
	cfgFile   string
	activeCfg config.Config
)

func NewRootCmd() *cobra.Command {
	defaults := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:           "recordgen",
		Short:         "Engrave audio into a printable record",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(config.LoadOptions{
				Cmd:        cmd,
				ConfigFile: cfgFile,
				Defaults:   defaults,
			})
			if err != nil {
				return err
			}
			activeCfg = loaded
			setupLogger(loaded.Log.Level, loaded.Log.File)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Optional config file (yaml|toml|json)")
	config.RegisterFlags(cmd.PersistentFlags(), defaults)

	cmd.AddCommand(newEngraveCmd())
	cmd.AddCommand(newCSVCmd())
	cmd.AddCommand(newBlankCmd())
	cmd.AddCommand(newInspectCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newBenchCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// setupLogger installs the process-wide zap logger. An unknown level falls
// back to info.
func setupLogger(level, file string) *zap.Logger {
	l, err := logger.Setup(level, file)
	if err != nil {
		l, _ = logger.Setup("info", file)
		l.Warn("falling back to info logging", zap.Error(err))
	}
	return l
}

func requireConfig() (config.Config, error) {
	if activeCfg.Log.Level == "" {
		return config.Config{}, errors.New("configuration not loaded")
	}
	return activeCfg, nil
}
