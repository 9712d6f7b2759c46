package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/panbanda/esmin/internal/output"
	"github.com/panbanda/esmin/pkg/edition"
	"github.com/urfave/cli/v2"
)

func checkCmd() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Fail when any file needs a later edition than the target",
		ArgsUsage: "[path...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "target",
				Aliases: []string{"t"},
				Usage:   "Target edition, e.g. ES2019, 2019 or ES10 (default analysis.target)",
			},
		},
		Action: runCheckCmd,
	}
}

func runCheckCmd(c *cli.Context) error {
	st := getState(c)

	target := edition.Unknown
	if name := getTrailingFlag(c, "target", "t", ""); name != "" {
		t, err := edition.Parse(name)
		if err != nil {
			return err
		}
		target = t
	}

	files, err := scanFiles(c, st)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		color.Yellow("No source files found")
		return nil
	}

	opts, tracker := progressOptions(c, "Checking compatibility...", len(files))
	res, result, err := newAnalysisService(c, st).CheckCompat(c.Context, files, target, opts)
	tracker.FinishSuccess()
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}

	formatter, err := newFormatter(c, st.config)
	if err != nil {
		return err
	}
	defer formatter.Close()

	var rows [][]string
	for _, v := range res.Violations {
		for _, o := range v.Features {
			loc := "-"
			if o.Line > 0 {
				loc = fmt.Sprintf("%d:%d", o.Line, o.Column)
			}
			rows = append(rows, []string{v.Path, o.Feature.String(), o.Edition().String(), loc})
		}
	}

	status := "PASSED"
	if !res.Passed {
		status = fmt.Sprintf("FAILED (%d of %d files)", len(res.Violations), res.Checked)
	}
	if formatter.Colored() {
		status = output.StatusColor(res.Passed, status)
	}

	table := output.NewTable(
		fmt.Sprintf("Compatibility with %s", res.Target),
		[]string{"File", "Feature", "Edition", "Location"},
		rows,
		[]string{"Target", res.Target.String(), "", status},
		res,
	)
	if err := formatter.Output(table); err != nil {
		return err
	}

	if err := fileErrors(errWriter(c), result.Errors); err != nil {
		return err
	}
	if !res.Passed {
		return errCheckFailed
	}
	return nil
}
