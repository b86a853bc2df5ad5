package main

import (
	"fmt"
	"os"

	"github.com/rodaine/table"
	"github.com/urfave/cli/v2"

	"github.com/angli232/fcs"
)

func listCommand() *cli.Command {
	return &cli.Command{
		Name:      "list",
		Usage:     "Print a table of channel metadata for an FCS file.",
		ArgsUsage: "<path>",
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return fmt.Errorf("%w: %w", ErrFcsinfo, fmt.Errorf("missing required argument <path>"))
			}
			return listChannels(path)
		},
	}
}

func listChannels(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: opening file: %w", ErrFcsinfo, err)
	}
	defer f.Close()

	ds, err := fcs.Open(f, fcs.WithOnlyText())
	if err != nil {
		return fmt.Errorf("%w: reading file: %w", ErrFcsinfo, err)
	}

	tbl := table.New("n", "PnN", "PnS", "PnB", "PnR", "PnE", "PnG", "role")
	for _, ch := range ds.Channels {
		tbl.AddRow(
			ch.Number,
			ch.PnN,
			ch.PnS,
			ch.PnB,
			ch.PnR,
			fmt.Sprintf("%g,%g", ch.PnE.Decades, ch.PnE.Log0),
			ch.PnG,
			ch.Role.String(),
		)
	}
	tbl.Print()

	return nil
}
