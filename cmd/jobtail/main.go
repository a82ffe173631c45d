package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/five82/jobtail/internal/app"
)

var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "jobtail: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "jobtail",
		Short:         "Follow batch job logs in the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newViewCommand(), newDumpCommand(), newVersionCommand())
	return root
}

func newViewCommand() *cobra.Command {
	var opts app.Options
	cmd := &cobra.Command{
		Use:   "view <job-id>",
		Short: "Open the interactive log viewer",
		Args:  cobra.RangeArgs(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := jobIDArg(args, opts.File)
			if err != nil {
				return err
			}
			opts.JobID = id
			opts.Version = version
			return app.Run(cmd.Context(), opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.ConfigPath, "config", "", "config file (default ~/.config/jobtail/config.toml)")
	flags.StringVar(&opts.PrefsPath, "prefs", "", "prefs file (default ~/.config/jobtail/prefs.toml)")
	flags.DurationVar(&opts.PollEvery, "poll", 0, "tail poll interval, e.g. 2s (default from config)")
	flags.StringVar(&opts.File, "file", "", "view a local log file instead of the API")
	flags.BoolVar(&opts.NoRefresh, "no-refresh", false, "start with auto-refresh off")
	return cmd
}

func newDumpCommand() *cobra.Command {
	var opts app.DumpOptions
	cmd := &cobra.Command{
		Use:   "dump <job-id>",
		Short: "Print the tail of a job log",
		Args:  cobra.RangeArgs(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := jobIDArg(args, opts.File)
			if err != nil {
				return err
			}
			opts.JobID = id
			opts.Version = version
			opts.Out = cmd.OutOrStdout()
			opts.Err = cmd.ErrOrStderr()
			return app.Dump(cmd.Context(), opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.ConfigPath, "config", "", "config file (default ~/.config/jobtail/config.toml)")
	flags.StringVar(&opts.File, "file", "", "read a local log file instead of the API")
	flags.Int64Var(&opts.Lines, "lines", 0, "number of trailing entries to print (default from config)")
	flags.BoolVarP(&opts.Follow, "follow", "f", false, "keep printing appended entries until interrupted")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the jobtail version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "jobtail %s\n", version)
		},
	}
}

// jobIDArg parses the job id argument. It may be omitted when a local file
// is given.
func jobIDArg(args []string, file string) (int64, error) {
	if len(args) == 0 {
		if file != "" {
			return 0, nil
		}
		return 0, fmt.Errorf("job id required (or pass --file)")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid job id %q", args[0])
	}
	return id, nil
}
