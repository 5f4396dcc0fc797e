package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wavemark/fprint/internal/fpconfig"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the resolved pipeline/matcher configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the selected preset (with any fpctl.yaml overlay applied) as YAML",
	RunE:  runConfigShow,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(presetName)
	if err != nil {
		return err
	}
	out, err := fpconfig.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

// resolveConfig selects the named platform preset and, if fpctl.yaml
// was found by viper, applies it as an overlay on top. Viper locates
// the file; fpconfig.LoadOverlay does the actual yaml.v3 merge, since
// it must start from the preset's Go-literal defaults rather than a
// zero-valued struct.
func resolveConfig(preset string) (fpconfig.Config, error) {
	var base fpconfig.Config
	switch preset {
	case "mobile":
		base = fpconfig.Mobile()
	case "desktop":
		base = fpconfig.Desktop()
	case "server":
		base = fpconfig.Server()
	default:
		return fpconfig.Config{}, fmt.Errorf("unknown preset %q: want mobile, desktop, or server", preset)
	}

	path := viper.ConfigFileUsed()
	if path == "" {
		return base, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fpconfig.Config{}, fmt.Errorf("read config overlay: %w", err)
	}
	return fpconfig.LoadOverlay(base, raw)
}
