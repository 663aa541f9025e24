package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Ning0612/dupfinder/internal/config"
	"github.com/Ning0612/dupfinder/internal/logger"
)

var version = "0.1.0"

// app carries global flags and the streams commands talk to
type app struct {
	configPath string
	verbose    bool
	logFormat  string
	noProgress bool

	cfg *config.Config

	out    io.Writer
	errOut io.Writer
	in     io.Reader
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, os.Stdin))
}

// run executes the command line and returns the process exit code
func run(args []string, out, errOut io.Writer, in io.Reader) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer logger.Shutdown()

	a := &app{out: out, errOut: errOut, in: in}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(errOut, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dupfinder",
		Short: "Find and manage duplicate files",
		Long: `dupfinder finds duplicate files within one directory tree or across two
trees by comparing file metadata and MD5 content digests, then relocates
or deletes the redundant copies.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file (default: search ./config.yaml, user config dir)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "Log format: text or json")
	rootCmd.PersistentFlags().BoolVar(&a.noProgress, "no-progress", false, "Hide progress bars")

	rootCmd.AddCommand(scanCmd(a))
	rootCmd.AddCommand(compareCmd(a))
	rootCmd.AddCommand(applyCmd(a))
	rootCmd.AddCommand(historyCmd(a))
	rootCmd.AddCommand(unlockCmd(a))

	return rootCmd
}

// setup loads configuration and starts the logger
func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logCfg := cfg.LoggerConfig()
	for i := range logCfg.Outputs {
		if logCfg.Outputs[i].Type == logger.OutputStderr {
			logCfg.Outputs[i].Writer = a.errOut
		}
	}
	if err := logger.Init(logCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	a.cfg = cfg
	return nil
}
