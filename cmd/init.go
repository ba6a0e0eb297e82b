package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/frontendtony/dualexe/internal/config"
	"github.com/spf13/cobra"
)

var force bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write an example config file",
	Long: `Writes an example config to the --config path (default ./config.json).
The format follows the file extension: .json, .yaml/.yml or .toml.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath := configFile()

		if _, err := os.Stat(cfgPath); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", cfgPath)
		}

		if dir := filepath.Dir(cfgPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("creating config directory: %w", err)
			}
		}
		if err := os.WriteFile(cfgPath, []byte(config.GenerateExample(cfgPath)), 0o644); err != nil {
			return fmt.Errorf("writing example config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created example config at %s\nEdit it and run dualexe again.\n", cfgPath)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	rootCmd.AddCommand(initCmd)
}
