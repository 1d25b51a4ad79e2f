package cmd

import (
	"fmt"
	"os"

	"github.com/kayz/promptblocks/internal/config"
	"github.com/kayz/promptblocks/internal/debug"
	"github.com/kayz/promptblocks/internal/logger"
	"github.com/kayz/promptblocks/internal/persist"
	"github.com/spf13/cobra"
)

var (
	logLevel   string
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "promptblocks",
	Short: "Compose prompts from reusable blocks",
	Long: `promptblocks builds prompts out of typed blocks (role, task, context,
constraints, tone, output format, examples) and compiles them into a single
prompt text.

  promptblocks program create "Support bot"
  promptblocks block add <program-id> role
  promptblocks compile --program <program-id>
  promptblocks web`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		level := cfg.Logging.Level
		if cmd.Flags().Changed("log") {
			level = logLevel
		}
		parsed, err := logger.ParseLevel(level)
		if err != nil {
			return err
		}
		logger.SetLevel(parsed)
		debug.Apply()

		if cfg.Logging.File != "" {
			if err := logger.SetFile(cfg.Logging.File); err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info",
		"Log level: trace, debug, info, warn, error, fatal")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to config file (default: .promptblocks.yaml next to the binary, or $"+config.EnvConfigPath+")")
}

// loadConfig reads the config selected by --config or the environment with
// relative paths resolved.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFromPath(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg.Resolved(), nil
}

// withStore opens the configured program store for the duration of fn.
func withStore(fn func(cfg *config.Config, store *persist.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := persist.NewStore(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open store %s: %w", cfg.Storage.Path, err)
	}
	defer store.Close()
	return fn(cfg, store)
}

func Execute() {
	defer logger.Close()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		logger.Close()
		os.Exit(1)
	}
}
