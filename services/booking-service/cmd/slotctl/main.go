// Command slotctl evaluates salon schedules offline: it reads a week schedule
// and optional bookings from JSON files and prints the grid, a single slot
// decision, the open windows or the validation report.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
)

type Context struct {
	Out io.Writer
}

type CLI struct {
	Version kong.VersionFlag `help:"Print version."`

	Slots    SlotsCmd    `cmd:"" help:"Show the start-time grid of one date."`
	Check    CheckCmd    `cmd:"" help:"Decide whether one start time can be booked."`
	Windows  WindowsCmd  `cmd:"" help:"Show open windows (hours minus breaks) per weekday."`
	Validate ValidateCmd `cmd:"" help:"Report inconsistent day configurations."`
}

func newParser(cli *CLI, options ...kong.Option) (*kong.Kong, error) {
	return kong.New(cli, append([]kong.Option{
		kong.Name("slotctl"),
		kong.Description("Offline availability calculator for salon schedules"),
		kong.UsageOnError(),
		kong.Vars{"version": "v0.1.0"},
	}, options...)...)
}

func main() {
	var cli CLI
	parser, err := newParser(&cli)
	if err != nil {
		panic(err)
	}
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	if err := ctx.Run(&Context{Out: os.Stdout}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
