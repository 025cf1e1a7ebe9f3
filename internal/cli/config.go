package cli

import (
	"fmt"
	"io"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/ui"
	"github.com/spf13/cobra"
)

var (
	configShowSecrets bool
	configInitForce   bool
	configInitGlobal  bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the hostwatch config",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective config",
	Long: `Print the config hostwatch would run with: file values, defaults and
HOSTWATCH_* environment overrides merged together. Passwords and tokens are
masked unless --show-secrets is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowCommand(cmd.OutOrStdout(), configShowSecrets)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a commented starter config",
	Long: `Write a starter config with every setting at its default and an example target.

The file goes to --config if given, ~/.config/hostwatch/config.yaml with
--global, and ./hostwatch.yaml otherwise.

Examples:
  hostwatch config init
  hostwatch config init --global
  hostwatch config init --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitCommand(cmd.OutOrStdout(), configInitForce, configInitGlobal)
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the config for mistakes",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configValidateCommand(cmd.OutOrStdout())
	},
}

func init() {
	configShowCmd.Flags().BoolVar(&configShowSecrets, "show-secrets", false, "print passwords and tokens in clear text")
	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "overwrite an existing config")
	configInitCmd.Flags().BoolVar(&configInitGlobal, "global", false, "write the per-user config instead of ./hostwatch.yaml")

	configCmd.AddCommand(configShowCmd, configInitCmd, configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

func configShowCommand(out io.Writer, showSecrets bool) error {
	cfg, path, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return err
	}

	data, err := config.Marshal(cfg, showSecrets)
	if err != nil {
		return err
	}

	if path == "" {
		fmt.Fprintln(out, "# No config file found; showing defaults")
	} else {
		fmt.Fprintf(out, "# Source: %s\n", path)
	}
	_, err = out.Write(data)
	return err
}

func configInitCommand(out io.Writer, force, global bool) error {
	path := cfgFile
	switch {
	case path != "":
	case global:
		path = config.GlobalConfigPath()
		if path == "" {
			return errors.New(errors.ErrConfig,
				"Couldn't determine your home directory",
				"Pass --config with an explicit path instead.")
		}
	default:
		path = config.ConfigFileName
	}

	if err := config.WriteDefault(path, force); err != nil {
		return err
	}

	fmt.Fprintln(out, ui.SuccessStyle().Render(ui.SymbolSuccess+" Wrote "+path))
	fmt.Fprintln(out, "  Add your hosts under 'targets', then run 'hostwatch check'.")
	return nil
}

func configValidateCommand(out io.Writer) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}

	source := path
	if source == "" {
		source = "defaults"
	}
	fmt.Fprintln(out, ui.SuccessStyle().Render(ui.SymbolSuccess+" Config is valid")+" "+ui.MutedStyle().Render("("+source+")"))
	fmt.Fprintf(out, "  %d target(s) configured\n", len(cfg.Targets))
	return nil
}
