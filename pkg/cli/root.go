/*
Copyright © 2025 NVIDIA Corporation
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/aumtech/logbundle/pkg/logging"
)

const (
	name           = "logbundle"
	versionDefault = "dev"
	envPrefix      = "LOGBUNDLE_"
)

var (
	// overridden during build with ldflags
	version = versionDefault
	commit  = "unknown"
	date    = "unknown"
)

// Execute runs the root command with the process arguments and exits
// non-zero on failure. This is called by main.main().
func Execute() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle SIGINT/SIGTERM for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, shutting down gracefully...")
		cancel()
	}()

	if err := newRootCmd().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Without a subcommand the root command
// runs a collection.
func newRootCmd() *cli.Command {
	return &cli.Command{
		Name:    name,
		Usage:   "Collect logs and core dump backtraces from a time window into one archive",
		Version: fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		Description: `Reads the source catalog (config.json by default), keeps every file
created inside the collection window and writes them to
aumtech.<MMDDYY>hhmi.zip together with a date_range.txt manifest.

Sources whose filename is "core" are dump directories: every core.* file
there is analysed with file(1) and gdb(1) and its backtrace is added to
the archive as core.<id>.log.

Missing start or end values are prompted for on stdin.

# Examples

Interactive:
  logbundle

Non-interactive:
  logbundle --start-date 05/01/2023 --start-time 00:00 \
    --end-date 05/01/2023 --end-time 23:59 --output-dir /var/tmp

List configured sources:
  logbundle sources --config /etc/logbundle/config.yaml`,
		EnableShellCompletion: true,
		Flags:                 collectFlags(),
		Before:                initLogger,
		Action:                runCollect,
		Commands: []*cli.Command{
			sourcesCmd(),
		},
	}
}

// initLogger configures slog after flags are parsed so --log-level takes
// effect before any command executes.
func initLogger(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	level := cmd.String("log-level")
	logging.SetDefaultStructuredLoggerWithLevel(name, version, level)
	slog.Debug("starting",
		"name", name,
		"version", version,
		"commit", commit,
		"date", date,
		"logLevel", level)
	return ctx, nil
}
