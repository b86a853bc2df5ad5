package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"
)

// Exit codes, mirroring the ExitCode* convention of small inspector CLIs
// in this corpus: success, flag-parse failure, everything else.
const (
	ExitCodeSuccess int = iota
	ExitCodeFlagParseError
	ExitCodeUnknownError
)

// ErrFlagParse is a flag parsing error.
var ErrFlagParse = errors.New("parsing flags")

// ErrFcsinfo wraps every error fcsinfo itself raises (as opposed to one
// bubbled up unwrapped from the fcs package).
var ErrFcsinfo = errors.New("fcsinfo")

func init() {
	cli.HelpFlag = &cli.BoolFlag{
		Name:               "d41d8cd98f00b204e980",
		DisableDefaultText: true,
	}
}

// check panics on a non-nil error.
func check(err error) {
	if err != nil {
		panic(err)
	}
}

// must panics on a non-nil error and otherwise returns val.
func must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

func newFcsinfoApp() *cli.App {
	return &cli.App{
		Name:  filepath.Base(os.Args[0]),
		Usage: "Inspect Flow Cytometry Standard (FCS) files.",
		Commands: []*cli.Command{
			describeCommand(),
			listCommand(),
			dumpAnalysisCommand(),
		},
		HideHelp:        false,
		HideHelpCommand: true,
		ExitErrHandler: func(c *cli.Context, err error) {
			if err == nil {
				return
			}
			_ = must(fmt.Fprintf(c.App.ErrWriter, "%s: %v\n", c.App.Name, err))
			if errors.Is(err, ErrFlagParse) {
				cli.OsExiter(ExitCodeFlagParseError)
				return
			}
			cli.OsExiter(ExitCodeUnknownError)
		},
	}
}

func main() {
	app := newFcsinfoApp()
	_ = app.Run(os.Args)
}
