package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/marcelocantos/ttsh/internal/cli"
	"github.com/marcelocantos/ttsh/internal/config"
	"github.com/marcelocantos/ttsh/internal/logging"
	"github.com/marcelocantos/ttsh/internal/schedule"
	"github.com/marcelocantos/ttsh/internal/watchdog"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	// Re-executed copies of this binary serve a single role and exit.
	if status, ok := schedule.ServeChild(); ok {
		return status
	}
	if status, ok := watchdog.Serve(); ok {
		return status
	}

	status := 0
	root := newRootCmd(stdin, stdout, stderr, &status)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "ttsh: %v\n", err)
		fmt.Fprintf(stderr, "usage: %s\n", root.UseLine())
		return 1
	}
	return status
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer, status *int) *cobra.Command {
	var (
		opts    cli.Options
		verbose bool
	)
	root := &cobra.Command{
		Use:   "ttsh [-pto] [-v] SCRIPT-FILE",
		Short: "Run a shell script, optionally overlapping independent commands",
		Long: `ttsh runs a script written in a small shell language: simple commands,
pipes, redirects, subshells, && || and ;.

With -t ("time travel") each top-level command runs in its own process as
soon as every earlier command it might conflict with has finished; two
commands conflict when one writes a file the other reads or writes.`,
		Version:       version,
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			level := cfg.Log.SlogLevel()
			if verbose {
				level = slog.LevelDebug
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			opts.Script = args[0]
			opts.Config = cfg
			opts.Log = logging.New(stderr, logging.Config{Level: level, JSON: cfg.Log.Format == "json"})
			opts.Stdin, opts.Stdout, opts.Stderr = stdin, stdout, stderr
			*status = cli.Run(ctx, opts)
			return nil
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	f := root.Flags()
	f.BoolVarP(&opts.Print, "print", "p", false, "print each command tree instead of running it")
	f.BoolVarP(&opts.TimeTravel, "time-travel", "t", false, "run independent top-level commands in parallel")
	f.BoolVarP(&opts.Overload, "overload-protection", "o", false, "kill runaway process floods while the script runs")
	f.BoolVarP(&verbose, "verbose", "v", false, "log parsing and scheduling decisions to stderr")

	root.AddCommand(newHistoryCmd(stdout, status))
	return root
}

func newHistoryCmd(stdout io.Writer, status *int) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the log of completed commands",
	}

	var (
		n       int
		lastRun bool
	)
	show := &cobra.Command{
		Use:   "show",
		Short: "Print recent history entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			*status = cli.RunHistoryShow(stdout, cfg.History.Path, n, lastRun)
			return nil
		},
	}
	show.Flags().IntVarP(&n, "number", "n", 20, "number of entries to print")
	show.Flags().BoolVar(&lastRun, "last-run", false, "only entries from the most recent run")

	verify := &cobra.Command{
		Use:   "verify",
		Short: "Check the history hash chain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			*status = cli.RunHistoryVerify(stdout, cfg.History.Path)
			return nil
		},
	}

	cmd.AddCommand(show, verify)
	return cmd
}
