/*
Copyright © 2025 NVIDIA Corporation
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/aumtech/logbundle/pkg/bundler"
	"github.com/aumtech/logbundle/pkg/bundler/config"
	"github.com/aumtech/logbundle/pkg/bundler/result"
	"github.com/aumtech/logbundle/pkg/catalog"
	"github.com/aumtech/logbundle/pkg/coredump"
	"github.com/aumtech/logbundle/pkg/errors"
	"github.com/aumtech/logbundle/pkg/serializer"
	"github.com/aumtech/logbundle/pkg/window"
)

const successMessage = "Logs Zipped Successfully"

// windowPrompts are asked, in order, for window values missing from flags.
var windowPrompts = []struct {
	flag  string
	label string
}{
	{"start-date", "Enter start date (mm/dd/yyyy): "},
	{"start-time", "Enter start time (hh:mm): "},
	{"end-date", "Enter end date (mm/dd/yyyy): "},
	{"end-time", "Enter end time (hh:mm): "},
}

func runCollect(ctx context.Context, cmd *cli.Command) error {
	outFormat, err := parseOutputFormat(cmd)
	if err != nil {
		return err
	}

	cat, err := catalog.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	stdin, stdout := streams(cmd)

	w, err := readWindow(cmd, stdin, stdout)
	if err != nil {
		return err
	}

	cfg := config.NewConfig(
		config.WithOutputDir(cmd.String("output-dir")),
		config.WithSizeLimit(cmd.Int64("size-limit")),
		config.WithQualifyNames(cmd.Bool("qualify-names")),
		config.WithIncludeChecksums(cmd.Bool("checksums")),
		config.WithStore(cmd.Bool("store")),
		config.WithConcurrency(cmd.Int("concurrency")),
		config.WithToolTimeout(cmd.Duration("tool-timeout")),
		config.WithToolRate(cmd.Float("tool-rate")),
		config.WithVersion(version),
	)

	analyzer := coredump.NewAnalyzer(
		coredump.NewExecInspector(cmd.String("file-tool"), cmd.String("debugger")),
		coredump.WithTimeout(cfg.ToolTimeout()),
		coredump.WithToolRate(cfg.ToolRate()),
	)

	b, err := bundler.New(cat, w,
		bundler.WithConfig(cfg),
		bundler.WithAnalyzer(analyzer),
	)
	if err != nil {
		return err
	}

	out, runErr := b.Run(ctx)

	if path := cmd.String("metrics-file"); path != "" {
		if err := bundler.WriteMetrics(path); err != nil {
			slog.Warn("failed to write metrics", "path", path, "error", err)
		}
	}

	if err := report(ctx, stdout, outFormat, out); err != nil {
		return err
	}
	if path := cmd.String("summary-file"); path != "" && out != nil {
		if err := writeSummaryFile(ctx, path, outFormat, out); err != nil {
			return err
		}
	}
	return runErr
}

// writeSummaryFile serializes v to the file at path, as JSON when no format
// was requested.
func writeSummaryFile(ctx context.Context, path string, format serializer.Format, v any) (err error) {
	if format == "" {
		format = serializer.FormatJSON
	}
	w := serializer.NewFileWriterOrStdout(format, path)
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = errors.Wrap(errors.ErrCodeFileSystem, "failed to close summary file", cerr)
		}
	}()
	return w.Serialize(ctx, v)
}

// streams returns the command's input and output, defaulting to the process's.
func streams(cmd *cli.Command) (io.Reader, io.Writer) {
	root := cmd.Root()
	var in io.Reader = os.Stdin
	var out io.Writer = os.Stdout
	if root.Reader != nil {
		in = root.Reader
	}
	if root.Writer != nil {
		out = root.Writer
	}
	return in, out
}

// readWindow takes the window from flags and prompts for whatever is missing.
func readWindow(cmd *cli.Command, in io.Reader, out io.Writer) (window.Window, error) {
	values := make([]string, len(windowPrompts))
	var scanner *bufio.Scanner

	for i, p := range windowPrompts {
		if v := strings.TrimSpace(cmd.String(p.flag)); v != "" {
			values[i] = v
			continue
		}
		if scanner == nil {
			scanner = bufio.NewScanner(in)
		}
		fmt.Fprint(out, p.label)
		if !scanner.Scan() {
			cause := scanner.Err()
			if cause == nil {
				cause = io.EOF
			}
			return window.Window{}, errors.WrapWithContext(errors.ErrCodeTimeParse,
				fmt.Sprintf("no value given for --%s", p.flag), cause,
				map[string]any{"flag": p.flag})
		}
		values[i] = strings.TrimSpace(scanner.Text())
	}

	return window.Parse(values[0], values[1], values[2], values[3],
		window.WithStrictOrder(cmd.Bool("strict-window")))
}

// report prints the run outcome: the serialized summary when a format was
// requested, otherwise a short status.
func report(ctx context.Context, w io.Writer, format serializer.Format, out *result.Output) error {
	if out == nil {
		return nil
	}
	if format != "" {
		return serializer.NewWriter(format, w).Serialize(ctx, out)
	}

	fmt.Fprintln(w, out.Summary())
	for _, warn := range out.Warnings {
		fmt.Fprintf(w, "  warning: %s: %s\n", warn.Dump, warn.Code)
	}
	if out.Succeeded() {
		fmt.Fprintln(w, successMessage)
	}
	return nil
}
