/*
Copyright © 2025 NVIDIA Corporation
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"github.com/urfave/cli/v3"

	"github.com/aumtech/logbundle/pkg/defaults"
	"github.com/aumtech/logbundle/pkg/serializer"
)

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Source catalog file (JSON or YAML)",
		Sources: cli.EnvVars(envPrefix + "CONFIG"),
		Value:   defaults.ConfigFile,
	}
}

func formatFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"t"},
		Usage:   "Summary format (json, yaml, table). Empty prints a short status line.",
		Sources: cli.EnvVars(envPrefix + "FORMAT"),
	}
}

func summaryFileFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "summary-file",
		Usage:   "Also write the serialized summary to this file (JSON unless --format is set)",
		Sources: cli.EnvVars(envPrefix + "SUMMARY_FILE"),
	}
}

func logLevelFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "log-level",
		Usage:   "Log level (debug, info, warn, error). Defaults to LOG_LEVEL or info.",
		Sources: cli.EnvVars(envPrefix + "LOG_LEVEL"),
	}
}

func collectFlags() []cli.Flag {
	return []cli.Flag{
		configFlag(),
		&cli.StringFlag{
			Name:    "start-date",
			Usage:   "Window start date (mm/dd/yyyy)",
			Sources: cli.EnvVars(envPrefix + "START_DATE"),
		},
		&cli.StringFlag{
			Name:    "start-time",
			Usage:   "Window start time (hh:mm, 24h)",
			Sources: cli.EnvVars(envPrefix + "START_TIME"),
		},
		&cli.StringFlag{
			Name:    "end-date",
			Usage:   "Window end date (mm/dd/yyyy)",
			Sources: cli.EnvVars(envPrefix + "END_DATE"),
		},
		&cli.StringFlag{
			Name:    "end-time",
			Usage:   "Window end time (hh:mm, 24h)",
			Sources: cli.EnvVars(envPrefix + "END_TIME"),
		},
		&cli.BoolFlag{
			Name:    "strict-window",
			Usage:   "Reject a window whose start is after its end",
			Sources: cli.EnvVars(envPrefix + "STRICT_WINDOW"),
		},
		&cli.StringFlag{
			Name:    "output-dir",
			Aliases: []string{"o"},
			Usage:   "Directory the archive is written to",
			Sources: cli.EnvVars(envPrefix + "OUTPUT_DIR"),
			Value:   ".",
		},
		&cli.Int64Flag{
			Name:    "size-limit",
			Usage:   "Largest archive in bytes; 0 disables the check, negative values are rejected",
			Sources: cli.EnvVars(envPrefix + "SIZE_LIMIT"),
			Value:   defaults.ArchiveSizeLimit,
		},
		&cli.BoolFlag{
			Name:    "qualify-names",
			Usage:   "Name entries <source>/<file> so equal file names from different sources are all kept",
			Sources: cli.EnvVars(envPrefix + "QUALIFY_NAMES"),
		},
		&cli.BoolFlag{
			Name:    "checksums",
			Usage:   "Add a checksums.txt entry with the SHA256 of every entry",
			Sources: cli.EnvVars(envPrefix + "CHECKSUMS"),
		},
		&cli.BoolFlag{
			Name:    "store",
			Usage:   "Store entries without compression",
			Sources: cli.EnvVars(envPrefix + "STORE"),
		},
		&cli.IntFlag{
			Name:    "concurrency",
			Usage:   "Number of sources scanned at the same time",
			Sources: cli.EnvVars(envPrefix + "CONCURRENCY"),
			Value:   defaults.MatchConcurrency,
		},
		&cli.DurationFlag{
			Name:    "tool-timeout",
			Usage:   "Bound for each file/gdb invocation; 0 disables it",
			Sources: cli.EnvVars(envPrefix + "TOOL_TIMEOUT"),
			Value:   defaults.ToolTimeout,
		},
		&cli.FloatFlag{
			Name:    "tool-rate",
			Usage:   "Maximum file/gdb launches per second; 0 is unlimited",
			Sources: cli.EnvVars(envPrefix + "TOOL_RATE"),
		},
		&cli.StringFlag{
			Name:    "file-tool",
			Usage:   "File type inspector used to find a dump's program",
			Sources: cli.EnvVars(envPrefix + "FILE_TOOL"),
			Value:   defaults.FileTool,
		},
		&cli.StringFlag{
			Name:    "debugger",
			Usage:   "Debugger used to capture backtraces",
			Sources: cli.EnvVars(envPrefix + "DEBUGGER"),
			Value:   defaults.Debugger,
		},
		&cli.StringFlag{
			Name:    "metrics-file",
			Usage:   "Write run metrics in Prometheus text format to this file",
			Sources: cli.EnvVars(envPrefix + "METRICS_FILE"),
		},
		formatFlag(),
		summaryFileFlag(),
		logLevelFlag(),
	}
}

// parseOutputFormat returns the --format value, or "" when none was given.
func parseOutputFormat(cmd *cli.Command) (serializer.Format, error) {
	v := cmd.String("format")
	if v == "" {
		return "", nil
	}
	return serializer.ParseFormat(v)
}
