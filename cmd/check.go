package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the config file and list its processes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: %d processes\n", configFile(), len(cfg.Order))
		for _, label := range cfg.Labels() {
			p, _ := cfg.Lookup(label)
			var flags []string
			if p.AutoRestart {
				flags = append(flags, "auto_restart")
			}
			if p.PTY {
				flags = append(flags, "pty")
			}
			line := fmt.Sprintf("  %-16s %s", label, p.Command)
			if len(flags) > 0 {
				line += "  [" + strings.Join(flags, ", ") + "]"
			}
			fmt.Fprintln(out, line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
