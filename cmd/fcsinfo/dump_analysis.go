package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/angli232/fcs"
)

func dumpAnalysisCommand() *cli.Command {
	return &cli.Command{
		Name:      "dump-analysis",
		Usage:     "Print the raw ANALYSIS key/value pairs of an FCS file.",
		ArgsUsage: "<path>",
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return fmt.Errorf("%w: %w", ErrFcsinfo, fmt.Errorf("missing required argument <path>"))
			}
			return dumpAnalysis(c.App.Writer, path)
		},
	}
}

func dumpAnalysis(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: opening file: %w", ErrFcsinfo, err)
	}
	defer f.Close()

	ds, err := fcs.Open(f, fcs.WithOnlyText())
	if err != nil {
		return fmt.Errorf("%w: reading file: %w", ErrFcsinfo, err)
	}

	if ds.Analysis.Len() == 0 {
		fmt.Fprintln(w, "(empty ANALYSIS segment)")
		return nil
	}
	for _, key := range ds.Analysis.Keys() {
		val, _ := ds.Analysis.Get(key)
		fmt.Fprintf(w, "%s = %s\n", key, val)
	}
	return nil
}
