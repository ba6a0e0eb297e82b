package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/frontendtony/dualexe/internal/command"
	"github.com/frontendtony/dualexe/internal/config"
	"github.com/frontendtony/dualexe/internal/console"
	"github.com/frontendtony/dualexe/internal/logging"
	"github.com/frontendtony/dualexe/internal/process"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	logFile    string
	plain      bool
	noColor    bool
)

var rootCmd = &cobra.Command{
	Use:   "dualexe",
	Short: "Run several processes from one console",
	Long: `dualexe starts every process in the config file, prefixes their output
with the process label, and reads commands to control them:

  start|stop|kill|restart <label>, input|send <label> <text>,
  status, tail <label> [n], exit, killall, help`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		closer, err := logging.Setup(logging.Options{File: logFile, Verbose: verbose})
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer closer.Close()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		printer := console.NewPrinter(os.Stdout, os.Stderr, console.ShouldUseColor(noColor))
		reg := process.NewRegistry(ctx, cfg, printer)
		dispatcher := command.NewDispatcher(reg, printer)

		slog.Info("starting", "config", configFile(), "processes", len(cfg.Order))

		if !plain && console.Interactive() {
			err = runInteractive(ctx, reg, dispatcher, printer)
		} else {
			err = runPlain(ctx, reg, dispatcher)
		}
		if err != nil {
			return err
		}

		printer.Info("All processes exited")
		return nil
	},
}

func configFile() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runPlain reads commands line by line from stdin.
func runPlain(ctx context.Context, reg *process.Registry, d *command.Dispatcher) error {
	go console.HandleSignals(ctx, d.Dispatch)
	go func() {
		if err := console.ReadLines(os.Stdin, d.Dispatch); err != nil {
			slog.Warn("reading stdin", "error", err)
		}
		slog.Debug("stdin closed")
	}()

	reg.StartAll()
	<-reg.Done()
	return nil
}

// runInteractive keeps a prompt on the last terminal line and prints every
// console line above it.
func runInteractive(ctx context.Context, reg *process.Registry, d *command.Dispatcher, printer *console.Printer) error {
	pump := console.NewPump()
	printer.Redirect(pump, pump)

	prompt := console.NewPrompt(func(line string) {
		printer.Echo(console.PromptSymbol, line)
		d.Dispatch(line)
	})
	prog := tea.NewProgram(prompt)

	go pump.Run(console.ProgramPrinter(prog))
	go console.HandleSignals(ctx, d.Dispatch)

	allDone := make(chan struct{})
	go func() {
		reg.StartAll()
		<-reg.Done()
		close(allDone)
	}()
	go func() {
		<-allDone
		pump.Close()
		prog.Quit()
	}()

	_, err := prog.Run()
	// Lines the program never got to print go to the plain console.
	pump.Detach(os.Stdout)
	printer.Redirect(os.Stdout, os.Stderr)
	select {
	case <-allDone:
	default:
		// The program ended before the processes did, for example on
		// SIGTERM. Finish on the plain console.
		if err != nil {
			reg.KillAll()
		} else {
			reg.ExitAll()
		}
		<-allDone
	}
	if err != nil {
		return fmt.Errorf("running console: %w", err)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default: ./config.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "write diagnostics to this file")
	rootCmd.Flags().BoolVar(&plain, "plain", false, "read commands from stdin without the interactive prompt")
	rootCmd.Flags().BoolVar(&noColor, "no-color", false, "strip ANSI styling from output")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
