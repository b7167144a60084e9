/*
Copyright © 2025 NVIDIA Corporation
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"context"
	"slices"

	"github.com/urfave/cli/v3"

	"github.com/aumtech/logbundle/pkg/catalog"
	"github.com/aumtech/logbundle/pkg/serializer"
)

func sourcesCmd() *cli.Command {
	return &cli.Command{
		Name:  "sources",
		Usage: "List the sources in the catalog",
		Description: `Loads the source catalog and prints one row per rule in the order
the catalog declares them. Use it to check a configuration file before a run.

  logbundle sources --config config.json --format yaml
  logbundle sources --config config.json --format json --summary-file sources.json`,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			outFormat, err := parseOutputFormat(cmd)
			if err != nil {
				return err
			}
			if outFormat == "" {
				outFormat = serializer.FormatTable
			}

			cat, err := catalog.Load(cmd.String("config"))
			if err != nil {
				return err
			}

			specs := slices.Collect(cat.All())
			if path := cmd.String("summary-file"); path != "" {
				return writeSummaryFile(ctx, path, outFormat, specs)
			}

			_, stdout := streams(cmd)
			return serializer.NewWriter(outFormat, stdout).Serialize(ctx, specs)
		},
	}
}
