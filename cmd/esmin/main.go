package main

import (
	"errors"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

var (
	version = "dev"
	commit  = "none"    //nolint:unused // set via ldflags at build time
	date    = "unknown" //nolint:unused // set via ldflags at build time
)

// errCheckFailed is returned by check when a file needs a later edition
// than the target. It maps to exit status 2.
var errCheckFailed = errors.New("compatibility check failed")

func newApp() *cli.App {
	return &cli.App{
		Name:     "esmin",
		Usage:    "Find the minimum ECMAScript edition your JavaScript needs",
		Version:  version,
		Metadata: make(map[string]interface{}),
		Description: `esmin parses JavaScript with tree-sitter and reports which ECMAScript
language features each file uses, from ES2016 to ES2025, and the earliest
edition that can run it.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (TOML, YAML, or JSON)",
				EnvVars: []string{"ESMIN_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, json, markdown, yaml, toon (default from config)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write output to file",
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Disable the result cache",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging on stderr",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			featuresCmd(),
			minCmd(),
			checkCmd(),
			catalogCmd(),
			watchCmd(),
			mcpCmd(),
			configCmd(),
		},
	}
}

func main() {
	os.Exit(run(newApp(), os.Args))
}

// run executes the app and returns the process exit status.
func run(app *cli.App, args []string) int {
	err := app.Run(args)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errCheckFailed):
		return 2
	default:
		color.Red("Error: %v", err)
		return 1
	}
}
