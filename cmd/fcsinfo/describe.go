package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/angli232/fcs"
)

func describeCommand() *cli.Command {
	return &cli.Command{
		Name:      "describe",
		Usage:     "Print HEADER/TEXT summary and warnings for an FCS file.",
		ArgsUsage: "<path>",
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return fmt.Errorf("%w: %w", ErrFcsinfo, fmt.Errorf("missing required argument <path>"))
			}
			return describe(c.App.Writer, path)
		},
	}
}

func describe(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: opening file: %w", ErrFcsinfo, err)
	}
	defer f.Close()

	ds, err := fcs.Open(f)
	if err != nil {
		return fmt.Errorf("%w: reading file: %w", ErrFcsinfo, err)
	}

	fmt.Fprintf(w, "file:      %s\n", path)
	fmt.Fprintf(w, "version:   %s\n", ds.Version)
	fmt.Fprintf(w, "header:    %s\n", ds.Header.String())
	fmt.Fprintf(w, "text keys: %d\n", ds.Text.Len())
	fmt.Fprintf(w, "channels:  %d\n", ds.ChannelCount)
	fmt.Fprintf(w, "events:    %d\n", ds.EventCount)
	fmt.Fprintf(w, "file size: %d bytes\n", ds.FileSize)

	warnings := ds.Warnings()
	if len(warnings) == 0 {
		fmt.Fprintln(w, "warnings:  none")
		return nil
	}
	fmt.Fprintf(w, "warnings:  %d\n", len(warnings))
	for _, warn := range warnings {
		fmt.Fprintf(w, "  - %s\n", warn.Error())
	}
	return nil
}
