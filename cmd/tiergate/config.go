package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/tiergate/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify tiergate configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/tiergate/config.yaml
Project-specific overrides can be placed in .tiergate.yaml
Environment variables use the TIERGATE_ prefix, e.g. TIERGATE_BACKEND_TOKEN.`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		out := cmd.OutOrStdout()

		switch len(args) {
		case 0:
			for _, key := range config.Keys() {
				value, _ := configValue(cfg, key)
				fmt.Fprintf(out, "%s: %s\n", key, value)
			}
			return nil
		case 1:
			value, err := configValue(cfg, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(out, value)
			return nil
		default:
			if err := config.SetUserValue(args[0], args[1]); err != nil {
				return err
			}
			shown := args[1]
			if args[0] == "backend.token" {
				shown = config.MaskToken(shown)
			}
			fmt.Fprintf(out, "Set %s = %s in %s\n", args[0], shown, config.GetUserConfigPath())
			return nil
		}
	},
}

// configValue retrieves a configuration value by dot-notation key.
func configValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "backend.endpoint":
		return cfg.Backend.Endpoint, nil
	case "backend.kind":
		return cfg.Backend.Kind, nil
	case "backend.token":
		return config.MaskToken(cfg.Backend.Token), nil
	case "backend.connect_timeout":
		return cfg.Backend.ConnectTimeout.String(), nil
	case "full_suite.workers":
		return strconv.Itoa(cfg.FullSuite.Workers), nil
	case "full_suite.environments":
		return strings.Join(cfg.FullSuite.Environments, ","), nil
	case "full_suite.cross_environment":
		return strconv.FormatBool(cfg.FullSuite.CrossEnvironment), nil
	case "full_suite.task_timeout":
		return cfg.FullSuite.TaskTimeout.String(), nil
	case "availability.cache_ttl":
		return cfg.Availability.CacheTTL.String(), nil
	case "git.base_ref":
		return cfg.Git.BaseRef, nil
	case "logging.verbose":
		return strconv.FormatBool(cfg.Logging.Verbose), nil
	default:
		return "", fmt.Errorf("%w: %s", config.ErrUnknownKey, key)
	}
}
