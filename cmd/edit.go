package cmd

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the config file in your editor",
	Long:  `Opens the config file in $VISUAL or $EDITOR (falls back to vi), then checks it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath := configFile()

		editor := os.Getenv("VISUAL")
		if editor == "" {
			editor = os.Getenv("EDITOR")
		}
		if editor == "" {
			editor = "vi"
		}

		// Let the shell split editors given with arguments, like "code -w".
		c := exec.Command("sh", "-c", editor+` "$1"`, "sh", cfgPath)
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr

		if err := c.Run(); err != nil {
			return fmt.Errorf("opening editor: %w", err)
		}

		if _, err := loadConfig(); err != nil {
			return fmt.Errorf("%s is not valid: %w", cfgPath, err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(editCmd)
}
