package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/parley/pkg/cliui"
	"github.com/papercomputeco/parley/pkg/config"
)

const presetLongDesc string = `Overwrite config.toml with a provider preset.

Available presets: bedrock, ollama.

Examples:
  parley config preset ollama`

const presetShortDesc string = "Write a provider preset to config.toml"

func newPresetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "preset <name>",
		Short:     presetShortDesc,
		Long:      presetLongDesc,
		Args:      cobra.ExactArgs(1),
		ValidArgs: config.ValidPresetNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runPreset(cmd.OutOrStdout(), args[0], configDir)
		},
	}

	return cmd
}

func runPreset(out io.Writer, name, configDir string) error {
	cfg, err := config.PresetConfig(name)
	if err != nil {
		return err
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	printTarget(out, cfger)

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintf(out, "  %s Wrote %s preset\n\n", cliui.SuccessMark, cliui.ValueStyle.Render(strings.ToLower(name)))
	return nil
}
