// File: cmd/root.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/api/schemas"
	"github.com/xkilldash9x/droidpilot/internal/config"
	"github.com/xkilldash9x/droidpilot/internal/observability"
	"github.com/xkilldash9x/droidpilot/internal/service"
)

// FactoryBuilder creates the component factory for a command invocation.
type FactoryBuilder func(speaker schemas.Speaker) service.ComponentFactory

// rootOptions carries the state shared by every subcommand of one root
// command instance.
type rootOptions struct {
	cfgFile string
	apiKey  string
	model   string
	noVoice bool

	cfg        *config.Config
	newFactory FactoryBuilder
}

// NewRootCommand builds a fresh command tree wired to an adb-attached device.
func NewRootCommand() *cobra.Command {
	return newRootCommand(func(speaker schemas.Speaker) service.ComponentFactory {
		return service.NewComponentFactory(speaker)
	})
}

func newRootCommand(newFactory FactoryBuilder) *cobra.Command {
	opts := &rootOptions{newFactory: newFactory}

	rootCmd := &cobra.Command{
		Use:           "droidpilot",
		Short:         "droidpilot drives an Android device from natural-language commands.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(viper.New(), opts.cfgFile)
			if err != nil {
				// Fall back to a console logger so the failure is visible.
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "droidpilot"})
				return err
			}
			opts.applyFlagOverrides(cmd, cfg)
			opts.cfg = cfg

			observability.InitializeLogger(cfg.Logger())
			observability.GetLogger().Debug("Starting droidpilot", zap.String("version", Version))
			return nil
		},
	}

	rootCmd.SetVersionTemplate(`{{printf "%s version %s\n" .Name .Version}}`)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.cfgFile, "config", "c", "", "config file (default is ./config.yaml or ~/.droidpilot/config.yaml)")
	flags.StringVar(&opts.apiKey, "api-key", "", "planner API key (overrides config and environment)")
	flags.StringVar(&opts.model, "model", "", "planner model name")
	flags.BoolVar(&opts.noVoice, "no-voice", false, "do not speak planner messages")

	rootCmd.AddCommand(
		newRunCmd(opts),
		newListenCmd(opts),
		newSnapshotCmd(opts),
		newHistoryCmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}

// applyFlagOverrides copies explicitly set settings flags onto cfg. Unset
// flags never shadow config or environment values.
func (o *rootOptions) applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("api-key") {
		cfg.SetAPIKey(o.apiKey)
	}
	if flags.Changed("model") {
		cfg.SetModel(o.model)
	}
	if flags.Changed("no-voice") && o.noVoice {
		cfg.SetVoiceEnabled(false)
	}
}

// Execute runs a fresh root command with the process arguments.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		observability.GetLogger().Info("Command aborted by signal.")
	} else {
		fmt.Fprintln(os.Stderr, errorColor.Sprint("Error: ")+err.Error())
		observability.GetLogger().Debug("Command execution failed", zap.Error(err))
	}
	observability.Sync()
	return err
}

// loadConfig reads defaults, the config file and DROIDPILOT_* environment
// variables into a validated Config.
func loadConfig(v *viper.Viper, cfgFile string) (*config.Config, error) {
	config.SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if dir, err := homedir.Expand("~/.droidpilot"); err == nil {
			v.AddConfigPath(dir)
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("DROIDPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; proceed with defaults/env vars
	}

	return config.NewConfigFromViper(v)
}
